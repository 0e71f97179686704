// Package validation checks request payloads declared with `validate` tags
// and reports failures as field-scoped model.ValidationError values keyed by
// JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/tour-booking/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// overrides holds messages for specific field/tag pairs.
var overrides = map[string]string{
	"password.min": "Пароль должен содержать не менее 8 символов.",
}

// Struct validates s.  It returns nil, a *model.ValidationError, or the
// validator's own error when s is not a struct.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &model.ValidationError{}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// fieldPath strips the root struct name from the namespace so nested
// fields read as "dates[0].end_date".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	if m, ok := overrides[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	switch fe.Tag() {
	case "required":
		return "Обязательное поле."
	case "email":
		return "Введите правильный адрес электронной почты."
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Длина должна быть не менее %s символов.", fe.Param())
		}
		return fmt.Sprintf("Значение должно быть не меньше %s.", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Длина должна быть не более %s символов.", fe.Param())
		}
		return fmt.Sprintf("Значение должно быть не больше %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Допустимые значения: %s.", fe.Param())
	}
	return fmt.Sprintf("Недопустимое значение (%s).", fe.Tag())
}
