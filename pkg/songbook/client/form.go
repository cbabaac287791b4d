package client

import (
	"github.com/tendant/songbook/pkg/songbook"
	"github.com/tendant/songbook/pkg/songbook/api"
)

// EditForm accumulates the changes of one edit form submission. Replaced or
// removed media keys are queued in filesToDelete so the server cleans them up
// after the update commits.
type EditForm struct {
	song    songbook.Song
	req     api.UpdateSongRequest
	pending map[songbook.MediaKind]string
}

// NewEditForm starts an edit of song
func NewEditForm(song *songbook.Song) *EditForm {
	return &EditForm{
		song:    *song,
		pending: make(map[songbook.MediaKind]string),
	}
}

func (f *EditForm) SetTitle(title string) {
	f.req.Title = songbook.String(title)
}

func (f *EditForm) SetLyrics(lyrics string) {
	f.req.Lyrics = songbook.String(lyrics)
}

// ReplaceMedia points kind at a freshly uploaded key
func (f *EditForm) ReplaceMedia(kind songbook.MediaKind, key string) {
	f.release(kind)
	f.pending[kind] = key
	f.set(kind, key)
}

// RemoveMedia clears kind
func (f *EditForm) RemoveMedia(kind songbook.MediaKind) {
	f.release(kind)
	delete(f.pending, kind)
	f.set(kind, "")
}

// Request returns the body for PUT /api/songs/{id}
func (f *EditForm) Request() api.UpdateSongRequest {
	req := f.req
	req.FilesToDelete = append([]string(nil), f.req.FilesToDelete...)
	return req
}

// release queues whatever kind currently points at: the stored key on the
// first change, or a key uploaded earlier in this form on later ones.
func (f *EditForm) release(kind songbook.MediaKind) {
	if key, ok := f.pending[kind]; ok {
		f.queue(key)
		return
	}
	if f.current(kind) == nil {
		f.queue(f.song.MediaKey(kind))
	}
}

func (f *EditForm) current(kind songbook.MediaKind) *string {
	switch kind {
	case songbook.MediaKindAudio:
		return f.req.AudioKey
	case songbook.MediaKindVideo:
		return f.req.VideoKey
	case songbook.MediaKindImage:
		return f.req.ImageKey
	case songbook.MediaKindMetadataImage:
		return f.req.MetadataImageKey
	}
	return nil
}

func (f *EditForm) set(kind songbook.MediaKind, key string) {
	switch kind {
	case songbook.MediaKindAudio:
		f.req.AudioKey = songbook.String(key)
	case songbook.MediaKindVideo:
		f.req.VideoKey = songbook.String(key)
	case songbook.MediaKindImage:
		f.req.ImageKey = songbook.String(key)
	case songbook.MediaKindMetadataImage:
		f.req.MetadataImageKey = songbook.String(key)
	}
}

func (f *EditForm) queue(key string) {
	if key == "" {
		return
	}
	for _, k := range f.req.FilesToDelete {
		if k == key {
			return
		}
	}
	f.req.FilesToDelete = append(f.req.FilesToDelete, key)
}
