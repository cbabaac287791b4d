package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/presigned"
)

// Backend is a filesystem implementation of the songbook.BlobStore interface.
// Presigned URLs point at presigned.Handlers mounted at URLPrefix.
type Backend struct {
	baseDir    string
	origin     string
	pathPrefix string
	signer     *presigned.Signer
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files

	// URLPrefix is where presigned.Handlers are mounted, e.g. http://localhost:8080/storage
	URLPrefix string

	// SignatureSecretKey signs upload and download URLs. Without it URLs are unsigned.
	SignatureSecretKey string
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	u, err := url.Parse(strings.TrimSuffix(config.URLPrefix, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid URL prefix: %w", err)
	}

	origin := ""
	if u.Scheme != "" {
		origin = u.Scheme + "://" + u.Host
	}

	return &Backend{
		baseDir:    filepath.Clean(config.BaseDir),
		origin:     origin,
		pathPrefix: u.Path,
		signer:     presigned.New(presigned.WithSecretKey(config.SignatureSecretKey)),
	}, nil
}

// Signer returns the signer shared with the handlers serving this backend
func (b *Backend) Signer() *presigned.Signer {
	return b.signer
}

// Handlers returns presigned handlers bound to this backend
func (b *Backend) Handlers() *presigned.Handlers {
	return presigned.NewHandlers(b, b.signer, presigned.WithPublicPrefix(songbook.PublicPrefix))
}

func (b *Backend) signedURL(method, route, key string, ttl time.Duration) (string, error) {
	path := b.pathPrefix + "/" + route + "/" + key
	if !b.signer.IsEnabled() {
		return b.origin + path, nil
	}
	signed, err := b.signer.SignURL(method, path, ttl)
	if err != nil {
		return "", err
	}
	return b.origin + signed, nil
}

func (b *Backend) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if _, err := b.resolve(key); err != nil {
		return "", err
	}
	return b.signedURL(http.MethodPut, "upload", key, ttl)
}

func (b *Backend) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := b.resolve(key); err != nil {
		return "", err
	}
	return b.signedURL(http.MethodGet, "download", key, ttl)
}

func (b *Backend) PublicURL(key string) string {
	return b.origin + b.pathPrefix + "/public/" + key
}

// Upload writes content to the filesystem
func (b *Backend) Upload(ctx context.Context, key, contentType string, reader io.Reader) error {
	filePath, err := b.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return &songbook.StorageError{Backend: "fs", Key: key, Op: "upload", Err: err}
	}

	// Write to a temp file so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return &songbook.StorageError{Backend: "fs", Key: key, Op: "upload", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return &songbook.StorageError{Backend: "fs", Key: key, Op: "upload", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &songbook.StorageError{Backend: "fs", Key: key, Op: "upload", Err: err}
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return &songbook.StorageError{Backend: "fs", Key: key, Op: "upload", Err: err}
	}
	return nil
}

// Open returns the file and a content type derived from its extension or bytes
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	filePath, err := b.resolve(key)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, "", presigned.ErrNotFound
	} else if err != nil {
		return nil, "", &songbook.StorageError{Backend: "fs", Key: key, Op: "open", Err: err}
	}

	contentType := songbook.ContentTypeByExtension(key)
	if contentType == "" {
		buffer := make([]byte, 512)
		n, _ := file.Read(buffer)
		contentType = http.DetectContentType(buffer[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, "", &songbook.StorageError{Backend: "fs", Key: key, Op: "open", Err: err}
		}
	}

	return file, contentType, nil
}

// Delete removes a file. Missing files and empty keys are not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	filePath, err := b.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return &songbook.StorageError{Backend: "fs", Key: key, Op: "delete", Err: err}
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// resolve maps a key to a path inside baseDir
func (b *Backend) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &songbook.StorageError{Backend: "fs", Key: key, Op: "resolve", Err: fmt.Errorf("%w: invalid object key", songbook.ErrValidation)}
	}
	return filepath.Join(b.baseDir, clean), nil
}

// cleanupEmptyDirectories removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir || !strings.HasPrefix(dir, b.baseDir) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
