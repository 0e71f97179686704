package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/service"
)

// formUpload opens the multipart file in field.  It returns nil when the
// request is not multipart or carries no such file; release must be called
// once the upload has been consumed.
func formUpload(c echo.Context, field string) (up *service.Upload, release func(), err error) {
	release = func() {}
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return nil, release, nil
	}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, release, nil
	}
	if err != nil {
		return nil, release, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, release, err
	}
	return uploadOf(fh, f), func() { _ = f.Close() }, nil
}

func uploadOf(fh *multipart.FileHeader, f multipart.File) *service.Upload {
	return &service.Upload{Name: fh.Filename, Size: fh.Size, Body: f}
}
