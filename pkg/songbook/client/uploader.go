package client

import (
	"context"
	"fmt"
	"io"

	"github.com/tendant/songbook/pkg/songbook"
)

// Uploader runs the browser-style upload flow: ask the API for a presigned
// URL, PUT the bytes straight to object storage, keep the returned key.
type Uploader struct {
	client *Client
	putter *Putter
}

// NewUploader creates an uploader. A nil putter gets default settings.
func NewUploader(client *Client, putter *Putter) *Uploader {
	if putter == nil {
		putter = NewPutter()
	}
	return &Uploader{client: client, putter: putter}
}

// Upload stores body under a new key for kind and returns the key
func (u *Uploader) Upload(ctx context.Context, kind songbook.MediaKind, filename, contentType string, body io.Reader) (string, error) {
	presigned, err := u.client.PresignUpload(ctx, kind, filename, contentType)
	if err != nil {
		return "", err
	}

	if err := u.putter.Put(ctx, presigned.URL, contentType, body); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	return presigned.Key, nil
}

// Replace uploads body and records it on form as the new media for kind
func (u *Uploader) Replace(ctx context.Context, form *EditForm, kind songbook.MediaKind, filename, contentType string, body io.Reader) (string, error) {
	key, err := u.Upload(ctx, kind, filename, contentType, body)
	if err != nil {
		return "", err
	}
	form.ReplaceMedia(kind, key)
	return key, nil
}
