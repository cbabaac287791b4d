package presigned

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ObjectStore is the storage a set of Handlers reads from and writes to.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, reader io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Handlers serve presigned upload and download URLs for backends that have
// no native URL signing, such as the local filesystem.
type Handlers struct {
	store         ObjectStore
	signer        *Signer
	publicPrefix  string
	maxUploadSize int64
}

// HandlersOption configures Handlers
type HandlersOption func(*Handlers)

// WithPublicPrefix allows unsigned GET /public/* for keys under prefix
func WithPublicPrefix(prefix string) HandlersOption {
	return func(h *Handlers) {
		h.publicPrefix = prefix
	}
}

// WithMaxUploadSize limits the body of a presigned PUT
func WithMaxUploadSize(n int64) HandlersOption {
	return func(h *Handlers) {
		h.maxUploadSize = n
	}
}

// NewHandlers creates handlers over store. A signer without a secret key
// accepts every request.
func NewHandlers(store ObjectStore, signer *Signer, opts ...HandlersOption) *Handlers {
	h := &Handlers{store: store, signer: signer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns a router with the presigned endpoints
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

// Mount registers the presigned endpoints on r
func (h *Handlers) Mount(r chi.Router) {
	r.Put("/upload/*", h.HandleUpload)
	r.Get("/download/*", h.HandleDownload)
	if h.publicPrefix != "" {
		r.Get("/public/*", h.HandlePublic)
	}
}

// HandleUpload handles PUT {prefix}/upload/{key...}?signature=&expires=
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "missing_object_key", "object key is required in URL path")
		return
	}

	if err := h.signer.ValidateRequest(r); err != nil {
		slog.Warn("Presigned upload rejected", "key", key, "error", err)
		writeValidationError(w, r, err)
		return
	}

	body := io.Reader(r.Body)
	if h.maxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := h.store.Upload(r.Context(), key, r.Header.Get("Content-Type"), body); err != nil {
		slog.Error("Presigned upload failed", "key", key, "error", err)
		writeError(w, r, http.StatusInternalServerError, "upload_failed", "failed to upload file")
		return
	}

	slog.Debug("Presigned upload succeeded", "key", key)
	w.WriteHeader(http.StatusOK)
}

// HandleDownload handles GET {prefix}/download/{key...}?signature=&expires=
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "missing_object_key", "object key is required in URL path")
		return
	}

	if err := h.signer.ValidateRequest(r); err != nil {
		slog.Warn("Presigned download rejected", "key", key, "error", err)
		writeValidationError(w, r, err)
		return
	}

	h.serve(w, r, key)
}

// HandlePublic handles GET {prefix}/public/{key...} for public-read keys
func (h *Handlers) HandlePublic(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !strings.HasPrefix(key, h.publicPrefix) {
		writeError(w, r, http.StatusForbidden, "not_public", "object is not publicly readable")
		return
	}
	h.serve(w, r, key)
}

func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, key string) {
	rc, contentType, err := h.store.Open(r.Context(), key)
	if errors.Is(err, ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", "object not found")
		return
	}
	if err != nil {
		slog.Error("Presigned download failed", "key", key, "error", err)
		writeError(w, r, http.StatusInternalServerError, "download_failed", "failed to read object")
		return
	}
	defer rc.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("Presigned download copy error", "key", key, "error", err)
	}
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, ok := rejection(err)
	if !ok {
		status, code = http.StatusForbidden, "invalid_signature"
	}
	writeError(w, r, status, code, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
