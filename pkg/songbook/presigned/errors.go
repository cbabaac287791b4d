package presigned

import (
	"errors"
	"net/http"
)

// ErrNotFound is returned by ObjectStore.Open for unknown keys
var ErrNotFound = errors.New("object not found")

var (
	ErrNoSecretKey       = errors.New("presigned: signer has no secret key")
	ErrMissingSignature  = errors.New("presigned: signature query parameter is required")
	ErrMissingExpiration = errors.New("presigned: expires query parameter is required")
	ErrInvalidExpiration = errors.New("presigned: expires is not a unix timestamp")
	ErrExpired           = errors.New("presigned: link has expired")
	ErrInvalidSignature  = errors.New("presigned: signature does not match")
)

// rejection maps a ValidateRequest error to the HTTP status and error code
// sent back to the caller. ok is false for errors that are not signature
// failures.
func rejection(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, ErrMissingSignature), errors.Is(err, ErrMissingExpiration):
		return http.StatusUnauthorized, "missing_signature", true
	case errors.Is(err, ErrInvalidExpiration):
		return http.StatusBadRequest, "invalid_expires", true
	case errors.Is(err, ErrExpired), errors.Is(err, ErrInvalidSignature):
		return http.StatusForbidden, "invalid_signature", true
	}
	return 0, "", false
}

// IsAuthError reports whether err means the request carried a missing,
// malformed, stale or forged signature
func IsAuthError(err error) bool {
	_, _, ok := rejection(err)
	return ok
}
