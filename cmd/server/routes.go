package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/songbook/pkg/songbook/api"
	"github.com/tendant/songbook/pkg/songbook/auth"
	"github.com/tendant/songbook/pkg/songbook/config"
	"github.com/tendant/songbook/pkg/songbook/web"
)

// mountRoutes attaches the JSON API, the filesystem storage endpoints and the
// web views to r.
func mountRoutes(r chi.Router, cfg *config.ServerConfig, rt *config.Runtime, authenticator *auth.Authenticator, logger *slog.Logger) error {
	songs := api.NewSongHandler(rt.Service, authenticator)

	var storageMount string
	if rt.FS != nil {
		mount, err := storageMountPath(cfg.FS.URLPrefix)
		if err != nil {
			return err
		}
		storageMount = mount
	}

	views, err := web.NewHandler(rt.Service, authenticator, web.WithCache(rt.Cache))
	if err != nil {
		return fmt.Errorf("failed to build web views: %w", err)
	}

	// Middleware is scoped to this group; the app shell owns the root mux.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(api.RecoveryMiddleware)
		r.Use(api.LoggingMiddleware(logger))
		if cfg.Environment == "development" {
			r.Use(api.CORSMiddleware([]string{"*"}))
		}

		r.Mount("/api", songs.Routes())
		if storageMount != "" {
			r.Mount(storageMount, rt.FS.Handlers().Routes())
		}
		r.Mount("/", views.Routes())
	})

	return nil
}

// storageMountPath returns the router path the filesystem handlers serve,
// taken from the path of the configured URL prefix.
func storageMountPath(prefix string) (string, error) {
	u, err := url.Parse(prefix)
	if err != nil {
		return "", fmt.Errorf("invalid FS_URL_PREFIX: %w", err)
	}
	path := "/" + strings.Trim(u.Path, "/")
	if path == "/" {
		return "", fmt.Errorf("FS_URL_PREFIX must include a path, e.g. %s/storage", strings.TrimSuffix(prefix, "/"))
	}
	return path, nil
}
