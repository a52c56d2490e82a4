/*
Package req provides helpers for HTTP request parsing and data binding.

It decodes size-limited JSON bodies strictly and validates the result with
struct tags, mapping every failure to an application error code.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"clawchat/internal/pkg/errs"
)

// MaxJSONBodySize bounds a JSON request body (1 MB).
const MaxJSONBodySize int64 = 1 << 20

var validate = validator.New()

// BindJSON decodes the JSON request body into dst and validates it.
// Unknown fields and trailing content are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.Wrap(errs.ErrInvalidJSONFormat, err)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return errs.Wrap(errs.ErrInvalidParams, err)
	}

	return nil
}
