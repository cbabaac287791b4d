package songbook

import (
	"strings"
	"time"

	"github.com/tendant/songbook/pkg/songbook/objectkey"
)

// MediaKind identifies which media slot of a song a blob belongs to.
type MediaKind string

const (
	MediaKindAudio         MediaKind = "audio"
	MediaKindVideo         MediaKind = "video"
	MediaKindImage         MediaKind = "image"
	MediaKindMetadataImage MediaKind = "metadata-image"
)

// MediaKinds lists every valid media kind in display order.
var MediaKinds = []MediaKind{MediaKindAudio, MediaKindVideo, MediaKindImage, MediaKindMetadataImage}

// IsValid reports whether k is one of the known media kinds.
func (k MediaKind) IsValid() bool {
	switch k {
	case MediaKindAudio, MediaKindVideo, MediaKindImage, MediaKindMetadataImage:
		return true
	}
	return false
}

// KeyPrefix returns the object store prefix used for blobs of this kind.
func (k MediaKind) KeyPrefix() string {
	p, _ := objectkey.Prefix(string(k))
	return p
}

// PublicPrefix is the only object store prefix with a public-read policy.
const PublicPrefix = "images/"

// MetadataImageAspect is the width:height ratio expected for link-preview images.
const MetadataImageAspect = 1.91

// Song is the only domain entity: a catalog entry with optional media.
//
// Media key fields reference blobs in the object store. An empty string means
// the slot is not set. References are advisory and may dangle.
type Song struct {
	ID               string    `json:"id" dynamodbav:"id"`
	Title            string    `json:"title" dynamodbav:"title"`
	Lyrics           string    `json:"lyrics" dynamodbav:"lyrics"`
	AudioKey         string    `json:"audioKey" dynamodbav:"audioKey"`
	VideoKey         string    `json:"videoKey" dynamodbav:"videoKey"`
	ImageKey         string    `json:"imageKey" dynamodbav:"imageKey"`
	MetadataImageKey string    `json:"metadataImageKey" dynamodbav:"metadataImageKey"`
	CreatedAt        time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// MediaKey returns the key stored in the slot for kind.
func (s *Song) MediaKey(kind MediaKind) string {
	switch kind {
	case MediaKindAudio:
		return s.AudioKey
	case MediaKindVideo:
		return s.VideoKey
	case MediaKindImage:
		return s.ImageKey
	case MediaKindMetadataImage:
		return s.MetadataImageKey
	}
	return ""
}

// HasMedia reports whether the slot for kind is set.
func (s *Song) HasMedia(kind MediaKind) bool {
	return s.MediaKey(kind) != ""
}

// MediaKeys returns every non-empty media key referenced by the song.
func (s *Song) MediaKeys() []string {
	var keys []string
	for _, kind := range MediaKinds {
		if key := s.MediaKey(kind); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// SongPatch lists the fields a partial update may touch. A nil field is left
// unchanged. UpdatedAt is always written.
type SongPatch struct {
	Title            *string
	Lyrics           *string
	AudioKey         *string
	VideoKey         *string
	ImageKey         *string
	MetadataImageKey *string
	UpdatedAt        time.Time
}

// IsEmpty reports whether the patch carries no field besides UpdatedAt.
func (p SongPatch) IsEmpty() bool {
	return p.Title == nil && p.Lyrics == nil && p.AudioKey == nil &&
		p.VideoKey == nil && p.ImageKey == nil && p.MetadataImageKey == nil
}

// mediaFields pairs each media pointer with its kind.
func (p SongPatch) mediaFields() map[MediaKind]*string {
	return map[MediaKind]*string{
		MediaKindAudio:         p.AudioKey,
		MediaKindVideo:         p.VideoKey,
		MediaKindImage:         p.ImageKey,
		MediaKindMetadataImage: p.MetadataImageKey,
	}
}

// Validate checks every provided field on its own.
func (p SongPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return validationError("title cannot be empty")
	}
	for kind, key := range p.mediaFields() {
		if key == nil || *key == "" {
			continue
		}
		if !strings.HasPrefix(*key, kind.KeyPrefix()+"/") {
			return validationError("%s key must start with %q", kind, kind.KeyPrefix()+"/")
		}
	}
	return nil
}

// Apply merges the provided fields of the patch into s.
func (p SongPatch) Apply(s *Song) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Lyrics != nil {
		s.Lyrics = *p.Lyrics
	}
	if p.AudioKey != nil {
		s.AudioKey = *p.AudioKey
	}
	if p.VideoKey != nil {
		s.VideoKey = *p.VideoKey
	}
	if p.ImageKey != nil {
		s.ImageKey = *p.ImageKey
	}
	if p.MetadataImageKey != nil {
		s.MetadataImageKey = *p.MetadataImageKey
	}
	s.UpdatedAt = p.UpdatedAt
}

// String returns a pointer to v, for building patches.
func String(v string) *string {
	return &v
}
