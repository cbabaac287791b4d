package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/tendant/songbook/pkg/songbook"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func badRequest(err error) error {
	return fmt.Errorf("%w: invalid request body: %v", songbook.ErrValidation, err)
}

func status(err error) int {
	switch {
	case errors.Is(err, songbook.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, songbook.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, songbook.ErrSongNotFound):
		return http.StatusNotFound
	default:
		// includes ErrSongExists
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the error envelope. Backend
// failures are reported with fallback instead of the internal error text.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := status(err)

	detail := ErrorDetail{}
	switch code {
	case http.StatusBadRequest:
		detail.Code = "validation_error"
		detail.Message = validationMessage(err)
	case http.StatusForbidden:
		detail.Code = "unauthorized"
		detail.Message = "Unauthorized: Admin access required"
	case http.StatusNotFound:
		detail.Code = "not_found"
		detail.Message = "Song not found"
	default:
		detail.Code = "internal_error"
		detail.Message = fallback
	}

	render.Status(r, code)
	render.JSON(w, r, ErrorBody{Error: detail})
}

// validationMessage strips the sentinel prefix from a validation error
func validationMessage(err error) string {
	msg := err.Error()
	prefix := songbook.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
