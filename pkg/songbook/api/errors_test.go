package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/songbook/pkg/songbook"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "validation",
			err:     fmt.Errorf("%w: title is required", songbook.ErrValidation),
			status:  http.StatusBadRequest,
			code:    "validation_error",
			message: "title is required",
		},
		{name: "unauthorized", err: songbook.ErrUnauthorized, status: http.StatusForbidden, code: "unauthorized"},
		{name: "not found", err: &songbook.SongError{ID: "x", Op: "get", Err: songbook.ErrSongNotFound}, status: http.StatusNotFound, code: "not_found"},
		{name: "id collision", err: songbook.ErrSongExists, status: http.StatusInternalServerError, code: "internal_error", message: "Failed to create song"},
		{name: "backend", err: errors.New("table unavailable"), status: http.StatusInternalServerError, code: "internal_error", message: "Failed to create song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest(http.MethodPost, "/api/songs", nil), tt.err, "Failed to create song")

			assert.Equal(t, tt.status, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error.Message)
			}
			assert.NotContains(t, body.Error.Message, "table unavailable")
		})
	}
}
