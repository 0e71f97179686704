package validation

import (
	"testing"

	"github.com/iliyamo/tour-booking/internal/model"
)

type signup struct {
	Username string `json:"username" validate:"required,max=123"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type withItems struct {
	Items []item `json:"items" validate:"dive"`
}

type item struct {
	Score int `json:"score" validate:"min=1,max=5"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Username: "ann", Email: "not-an-email", Password: "1234567"})
	verr, ok := err.(*model.ValidationError)
	if !ok {
		t.Fatalf("expected *model.ValidationError, got %T (%v)", err, err)
	}
	if got := verr.Fields["password"]; got != "Пароль должен содержать не менее 8 символов." {
		t.Fatalf("password message: %q", got)
	}
	if _, ok := verr.Fields["email"]; !ok {
		t.Fatalf("missing email error: %v", verr.Fields)
	}
	if _, ok := verr.Fields["username"]; ok {
		t.Fatal("username is valid")
	}
}

func TestStructNestedPath(t *testing.T) {
	err := Struct(withItems{Items: []item{{Score: 3}, {Score: 9}}})
	verr, ok := err.(*model.ValidationError)
	if !ok {
		t.Fatalf("expected *model.ValidationError, got %T", err)
	}
	if _, ok := verr.Fields["items[1].score"]; !ok {
		t.Fatalf("unexpected fields: %v", verr.Fields)
	}
}

func TestStructValid(t *testing.T) {
	if err := Struct(signup{Username: "ann", Email: "ann@example.com", Password: "12345678"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
