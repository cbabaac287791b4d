package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/auth"
)

// CreateSongRequest is the request body for creating a song
type CreateSongRequest struct {
	Title            string `json:"title"`
	Lyrics           string `json:"lyrics"`
	AudioKey         string `json:"audioKey"`
	VideoKey         string `json:"videoKey"`
	ImageKey         string `json:"imageKey"`
	MetadataImageKey string `json:"metadataImageKey"`
}

// UpdateSongRequest is the request body for a partial update. Absent fields
// are left unchanged; an empty string clears a media key.
type UpdateSongRequest struct {
	Title            *string  `json:"title"`
	Lyrics           *string  `json:"lyrics"`
	AudioKey         *string  `json:"audioKey"`
	VideoKey         *string  `json:"videoKey"`
	ImageKey         *string  `json:"imageKey"`
	MetadataImageKey *string  `json:"metadataImageKey"`
	FilesToDelete    []string `json:"filesToDelete"`
}

// PresignUploadRequest is the request body for minting an upload URL
type PresignUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	FieldType   string `json:"fieldType"`
}

// SongResponse wraps a single song
type SongResponse struct {
	Song *songbook.Song `json:"song"`
}

// SongListResponse wraps the song list
type SongListResponse struct {
	Songs []*songbook.Song `json:"songs"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// URLResponse carries a presigned download URL
type URLResponse struct {
	URL string `json:"url"`
}

// OrphanListResponse is the cleaner's dead-letter report
type OrphanListResponse struct {
	Orphans []songbook.Orphan `json:"orphans"`
}

// SongHandler handles HTTP requests for songs and media URLs
type SongHandler struct {
	service songbook.Service
	auth    *auth.Authenticator
}

// NewSongHandler creates a new song handler
func NewSongHandler(service songbook.Service, authenticator *auth.Authenticator) *SongHandler {
	return &SongHandler{
		service: service,
		auth:    authenticator,
	}
}

// Routes returns the API routes. Mutating routes require an admin session.
func (h *SongHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(BodyLimitMiddleware(MaxBodyBytes))

	r.Get("/songs", h.ListSongs)
	r.Get("/songs/{id}", h.GetSong)
	r.Get("/media/presigned-url", h.PresignDownload)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAdmin)

		r.Post("/songs", h.CreateSong)
		r.Put("/songs/{id}", h.UpdateSong)
		r.Delete("/songs/{id}", h.DeleteSong)
		r.Post("/upload/presigned-url", h.PresignUpload)
		r.Get("/admin/orphans", h.ListOrphans)
	})

	return r
}

// ListSongs returns every song, newest first
func (h *SongHandler) ListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := h.service.ListSongs(r.Context())
	if err != nil {
		slog.Error("Failed to list songs", "error", err)
		writeError(w, r, err, "Failed to fetch songs")
		return
	}

	if songs == nil {
		songs = []*songbook.Song{}
	}
	render.JSON(w, r, SongListResponse{Songs: songs})
}

// GetSong returns one song
func (h *SongHandler) GetSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	song, err := h.service.GetSong(r.Context(), id)
	if err != nil {
		if !errors.Is(err, songbook.ErrSongNotFound) {
			slog.Error("Failed to get song", "song_id", id, "error", err)
		}
		writeError(w, r, err, "Failed to fetch song")
		return
	}

	render.JSON(w, r, SongResponse{Song: song})
}

// CreateSong creates a song
func (h *SongHandler) CreateSong(w http.ResponseWriter, r *http.Request) {
	var req CreateSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeError(w, r, badRequest(err), "")
		return
	}

	song, err := h.service.CreateSong(r.Context(), songbook.CreateSongRequest{
		Title:            req.Title,
		Lyrics:           req.Lyrics,
		AudioKey:         req.AudioKey,
		VideoKey:         req.VideoKey,
		ImageKey:         req.ImageKey,
		MetadataImageKey: req.MetadataImageKey,
	})
	if err != nil {
		if !errors.Is(err, songbook.ErrValidation) {
			slog.Error("Failed to create song", "error", err)
		}
		writeError(w, r, err, "Failed to create song")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SongResponse{Song: song})
}

// UpdateSong applies a partial update and queues filesToDelete for removal
func (h *SongHandler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode request", "song_id", id, "error", err)
		writeError(w, r, badRequest(err), "")
		return
	}

	song, err := h.service.UpdateSong(r.Context(), songbook.UpdateSongRequest{
		ID: id,
		Patch: songbook.SongPatch{
			Title:            req.Title,
			Lyrics:           req.Lyrics,
			AudioKey:         req.AudioKey,
			VideoKey:         req.VideoKey,
			ImageKey:         req.ImageKey,
			MetadataImageKey: req.MetadataImageKey,
		},
		FilesToDelete: req.FilesToDelete,
	})
	if err != nil {
		if status(err) == http.StatusInternalServerError {
			slog.Error("Failed to update song", "song_id", id, "error", err)
		}
		writeError(w, r, err, "Failed to update song")
		return
	}

	render.JSON(w, r, SongResponse{Song: song})
}

// DeleteSong removes a song and queues its media for removal
func (h *SongHandler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteSong(r.Context(), id); err != nil {
		if status(err) == http.StatusInternalServerError {
			slog.Error("Failed to delete song", "song_id", id, "error", err)
		}
		writeError(w, r, err, "Failed to delete song")
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Song deleted successfully"})
}

// PresignUpload mints a presigned PUT URL and the key the object will live under
func (h *SongHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req PresignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeError(w, r, badRequest(err), "")
		return
	}

	upload, err := h.service.PresignUpload(r.Context(), songbook.PresignUploadRequest{
		Kind:        songbook.MediaKind(req.FieldType),
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		if !errors.Is(err, songbook.ErrValidation) {
			slog.Error("Failed to generate presigned URL", "field_type", req.FieldType, "error", err)
		}
		writeError(w, r, err, "Failed to generate presigned URL")
		return
	}

	render.JSON(w, r, upload)
}

// PresignDownload mints a presigned GET URL for ?key=, with ?variant=metadata
// for the long-lived link-preview variant
func (h *SongHandler) PresignDownload(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.PresignDownload(r.Context(), songbook.PresignDownloadRequest{
		Key:     r.URL.Query().Get("key"),
		Variant: songbook.DownloadVariant(r.URL.Query().Get("variant")),
	})
	if err != nil {
		if !errors.Is(err, songbook.ErrValidation) {
			slog.Error("Failed to generate presigned URL", "key", r.URL.Query().Get("key"), "error", err)
		}
		writeError(w, r, err, "Failed to generate presigned URL")
		return
	}

	render.JSON(w, r, URLResponse{URL: url})
}

// ListOrphans reports blob keys whose deletion was given up on
func (h *SongHandler) ListOrphans(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OrphanListResponse{Orphans: h.service.Orphans()})
}
