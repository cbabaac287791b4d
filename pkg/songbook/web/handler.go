package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/auth"
	"github.com/tendant/songbook/pkg/songbook/client"
	"github.com/tendant/songbook/pkg/songbook/imagecrop"
)

// DefaultMaxUploadSize bounds a form submission including its files
const DefaultMaxUploadSize = 512 << 20

// Handler renders the song pages and handles the admin forms
type Handler struct {
	service       songbook.Service
	auth          *auth.Authenticator
	cache         *client.Cache
	templates     map[string]*template.Template
	maxUploadSize int64
}

// Option configures a Handler
type Option func(*Handler)

// WithCache shares a song list cache with the handler
func WithCache(cache *client.Cache) Option {
	return func(h *Handler) {
		h.cache = cache
	}
}

// WithMaxUploadSize sets the largest accepted form body
func WithMaxUploadSize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadSize = n
		}
	}
}

// NewHandler creates the web handler. Without WithCache the list is cached
// over the service with the default TTL.
func NewHandler(service songbook.Service, authenticator *auth.Authenticator, opts ...Option) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		service:       service,
		auth:          authenticator,
		templates:     templates,
		maxUploadSize: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = client.NewCache(service)
	}
	return h, nil
}

// Routes returns the page routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.auth.Session)

	r.Get("/", h.List)
	r.Get("/songs/{id}", h.Detail)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAdmin)

		r.Get("/songs/new", h.NewForm)
		r.Get("/songs/{id}/edit", h.EditForm)
		r.Post("/songs", h.Create)
		r.Post("/songs/{id}", h.Update)
		r.Post("/songs/{id}/delete", h.Delete)
	})

	return r
}

func isAdmin(r *http.Request) bool {
	identity, err := auth.IdentityFromContext(r.Context())
	return err == nil && identity.IsAdmin
}

func (h *Handler) render(w http.ResponseWriter, page string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, "error", status, errorPage{
		layoutData: layoutData{Title: "Capoeira Songs", IsAdmin: isAdmin(r)},
		Message:    message,
	})
}

// List renders all songs, newest first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := listPage{layoutData: layoutData{Title: "Capoeira Songs", IsAdmin: isAdmin(r)}}

	songs, err := h.cache.Get(r.Context())
	if err != nil {
		slog.Error("Failed to list songs", "error", err)
		page.Error = "Failed to fetch songs"
		h.render(w, "list", http.StatusInternalServerError, page)
		return
	}

	page.Songs = songs
	h.render(w, "list", http.StatusOK, page)
}

func (h *Handler) song(ctx context.Context, id string) (*songbook.Song, error) {
	if song, ok := h.cache.Lookup(id); ok {
		return song, nil
	}
	return h.service.GetSong(ctx, id)
}

// songOrError loads the song named in the URL. Forms pass cached=false so
// edits always start from the stored record.
func (h *Handler) songOrError(w http.ResponseWriter, r *http.Request, cached bool) (*songbook.Song, bool) {
	id := chi.URLParam(r, "id")
	var song *songbook.Song
	var err error
	if cached {
		song, err = h.song(r.Context(), id)
	} else {
		song, err = h.service.GetSong(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, songbook.ErrSongNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Song not found")
			return nil, false
		}
		slog.Error("Failed to get song", "song_id", id, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Failed to fetch song")
		return nil, false
	}
	return song, true
}

func (h *Handler) presign(ctx context.Context, key string, variant songbook.DownloadVariant) string {
	if key == "" {
		return ""
	}
	url, err := h.service.PresignDownload(ctx, songbook.PresignDownloadRequest{Key: key, Variant: variant})
	if err != nil {
		slog.Warn("Failed to presign media", "key", key, "error", err)
		return ""
	}
	return url
}

// Detail renders one song. ?tab=song|video selects the media tab.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	song, ok := h.songOrError(w, r, true)
	if !ok {
		return
	}
	ctx := r.Context()

	tabs := NewMediaTabs(song)
	if tab := r.URL.Query().Get("tab"); tab != "" {
		tabs.Select(Tab(tab))
	}

	lyrics, err := renderMarkdown(song.Lyrics)
	if err != nil {
		slog.Warn("Failed to render lyrics", "song_id", song.ID, "error", err)
	}

	page := detailPage{
		layoutData: layoutData{
			Title:   song.Title,
			OGImage: h.presign(ctx, song.MetadataImageKey, songbook.DownloadVariantMetadata),
			IsAdmin: isAdmin(r),
		},
		Song:     song,
		Tabs:     tabs,
		ImageURL: h.service.PublicURL(song.ImageKey),
		Lyrics:   lyrics,
	}
	if tabs.ShowAudio() {
		page.AudioURL = h.presign(ctx, song.AudioKey, songbook.DownloadVariantDefault)
	}
	if tabs.ShowVideo() {
		page.VideoURL = h.presign(ctx, song.VideoKey, songbook.DownloadVariantDefault)
	}

	h.render(w, "detail", http.StatusOK, page)
}

func formFields(song *songbook.Song) []formField {
	return []formField{
		{Kind: string(songbook.MediaKindAudio), Label: "Song (audio)", Key: song.AudioKey, Accept: "audio/*"},
		{Kind: string(songbook.MediaKindVideo), Label: "Video", Key: song.VideoKey, Accept: "video/*"},
		{Kind: string(songbook.MediaKindImage), Label: "Image", Key: song.ImageKey, Accept: "image/*"},
		{
			Kind:   string(songbook.MediaKindMetadataImage),
			Label:  "Link preview image",
			Key:    song.MetadataImageKey,
			Accept: "image/*",
			Hint:   "Cropped to 1.91:1 and scaled to 1200x628",
		},
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, song *songbook.Song, message string) {
	action := "/songs"
	title := "New song"
	if song.ID != "" {
		action = "/songs/" + song.ID
		title = "Edit " + song.Title
	}
	h.render(w, "form", status, formPage{
		layoutData: layoutData{Title: title, IsAdmin: isAdmin(r)},
		Song:       song,
		Action:     action,
		Fields:     formFields(song),
		Error:      message,
	})
}

// NewForm renders an empty song form
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, &songbook.Song{}, "")
}

// EditForm renders the form for an existing song
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	song, ok := h.songOrError(w, r, false)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, song, "")
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// uploadField stores the file posted for kind, if any. Metadata images go
// through the crop flow and only the cropped blob is stored.
func (h *Handler) uploadField(ctx context.Context, r *http.Request, kind songbook.MediaKind) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile(string(kind))
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()
	if header.Size == 0 && header.Filename == "" {
		return "", nil
	}

	req := songbook.PresignUploadRequest{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: contentType(header),
	}
	if kind != songbook.MediaKindMetadataImage {
		return h.service.UploadMedia(ctx, req, file)
	}

	blob, err := cropUpload(header.Filename, file)
	if err != nil {
		return "", err
	}
	req.ContentType = imagecrop.ContentType
	return h.service.UploadMedia(ctx, req, bytes.NewReader(blob))
}

func cropUpload(filename string, file io.Reader) ([]byte, error) {
	source, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var flow CropFlow
	if err := flow.Select(filename, source); err != nil {
		return nil, err
	}
	cropped, err := imagecrop.Process(bytes.NewReader(source))
	if err != nil {
		flow.Cancel()
		return nil, fmt.Errorf("%w: %v", songbook.ErrValidation, err)
	}
	if err := flow.Complete(cropped); err != nil {
		return nil, err
	}

	_, blob, _ := flow.Queued()
	return blob, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := songbook.ContentTypeByExtension(header.Filename); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (h *Handler) refresh(ctx context.Context) {
	h.cache.Invalidate()
	if _, err := h.cache.Refetch(ctx); err != nil {
		slog.Warn("Failed to refetch songs after mutation", "error", err)
	}
}

func formStatus(err error) int {
	switch {
	case errors.Is(err, songbook.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, songbook.ErrSongNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func formMessage(err error, fallback string) string {
	if errors.Is(err, songbook.ErrValidation) {
		return strings.TrimPrefix(err.Error(), songbook.ErrValidation.Error()+": ")
	}
	return fallback
}

// Create handles the new song form
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.parseForm(w, r); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, &songbook.Song{}, "Invalid form submission")
		return
	}

	req := songbook.CreateSongRequest{
		Title:  r.FormValue("title"),
		Lyrics: r.FormValue("lyrics"),
	}
	draft := &songbook.Song{Title: req.Title, Lyrics: req.Lyrics}
	if strings.TrimSpace(req.Title) == "" {
		h.renderForm(w, r, http.StatusBadRequest, draft, "Title is required")
		return
	}

	var uploaded []string
	for _, kind := range songbook.MediaKinds {
		key, err := h.uploadField(ctx, r, kind)
		if err != nil {
			slog.Error("Failed to upload media", "field_type", kind, "error", err)
			h.service.DiscardMedia(uploaded...)
			h.renderForm(w, r, formStatus(err), draft, formMessage(err, "Failed to upload "+string(kind)))
			return
		}
		if key == "" {
			continue
		}
		uploaded = append(uploaded, key)
		switch kind {
		case songbook.MediaKindAudio:
			req.AudioKey = key
		case songbook.MediaKindVideo:
			req.VideoKey = key
		case songbook.MediaKindImage:
			req.ImageKey = key
		case songbook.MediaKindMetadataImage:
			req.MetadataImageKey = key
		}
	}

	song, err := h.service.CreateSong(ctx, req)
	if err != nil {
		slog.Error("Failed to create song", "error", err)
		h.service.DiscardMedia(uploaded...)
		h.renderForm(w, r, formStatus(err), draft, formMessage(err, "Failed to create song"))
		return
	}

	h.refresh(ctx)
	http.Redirect(w, r, "/songs/"+song.ID, http.StatusSeeOther)
}

// Update handles the edit form. Replaced and removed files are deleted
// after the update commits.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	song, ok := h.songOrError(w, r, false)
	if !ok {
		return
	}
	if err := h.parseForm(w, r); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, song, "Invalid form submission")
		return
	}

	form := client.NewEditForm(song)
	if _, ok := r.Form["title"]; ok {
		form.SetTitle(r.FormValue("title"))
	}
	if _, ok := r.Form["lyrics"]; ok {
		form.SetLyrics(r.FormValue("lyrics"))
	}

	var uploaded []string
	for _, kind := range songbook.MediaKinds {
		if r.FormValue("remove-"+string(kind)) != "" {
			form.RemoveMedia(kind)
		}
		key, err := h.uploadField(ctx, r, kind)
		if err != nil {
			slog.Error("Failed to upload media", "song_id", song.ID, "field_type", kind, "error", err)
			h.service.DiscardMedia(uploaded...)
			h.renderForm(w, r, formStatus(err), song, formMessage(err, "Failed to upload "+string(kind)))
			return
		}
		if key != "" {
			uploaded = append(uploaded, key)
			form.ReplaceMedia(kind, key)
		}
	}

	body := form.Request()
	_, err := h.service.UpdateSong(ctx, songbook.UpdateSongRequest{
		ID: song.ID,
		Patch: songbook.SongPatch{
			Title:            body.Title,
			Lyrics:           body.Lyrics,
			AudioKey:         body.AudioKey,
			VideoKey:         body.VideoKey,
			ImageKey:         body.ImageKey,
			MetadataImageKey: body.MetadataImageKey,
		},
		FilesToDelete: body.FilesToDelete,
	})
	if err != nil {
		slog.Error("Failed to update song", "song_id", song.ID, "error", err)
		h.service.DiscardMedia(uploaded...)
		h.renderForm(w, r, formStatus(err), song, formMessage(err, "Failed to update song"))
		return
	}

	h.refresh(ctx)
	http.Redirect(w, r, "/songs/"+song.ID, http.StatusSeeOther)
}

// Delete removes a song and returns to the list
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteSong(ctx, id); err != nil {
		if errors.Is(err, songbook.ErrSongNotFound) {
			h.renderError(w, r, http.StatusNotFound, "Song not found")
			return
		}
		slog.Error("Failed to delete song", "song_id", id, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	h.refresh(ctx)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
