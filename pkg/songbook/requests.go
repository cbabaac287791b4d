package songbook

import "strings"

// CreateSongRequest contains parameters for creating a song. Missing media
// keys default to the empty string.
type CreateSongRequest struct {
	Title            string
	Lyrics           string
	AudioKey         string
	VideoKey         string
	ImageKey         string
	MetadataImageKey string
}

// Validate checks the title and every provided key.
func (r CreateSongRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return validationError("title is required")
	}
	return SongPatch{
		AudioKey:         &r.AudioKey,
		VideoKey:         &r.VideoKey,
		ImageKey:         &r.ImageKey,
		MetadataImageKey: &r.MetadataImageKey,
	}.Validate()
}

// UpdateSongRequest contains parameters for a partial song update.
type UpdateSongRequest struct {
	ID    string
	Patch SongPatch

	// FilesToDelete lists object keys to remove once the update commits
	FilesToDelete []string
}

// PresignUploadRequest contains parameters for minting an upload URL.
type PresignUploadRequest struct {
	Kind        MediaKind
	Filename    string
	ContentType string
}

// Validate checks required fields and the content type of metadata images.
func (r PresignUploadRequest) Validate() error {
	if r.Filename == "" || r.ContentType == "" || r.Kind == "" {
		return validationError("missing required fields: filename, contentType, fieldType")
	}
	if !r.Kind.IsValid() {
		return validationError("invalid fieldType, must be one of audio, video, image, metadata-image")
	}
	if r.Kind == MediaKindMetadataImage && !strings.HasPrefix(r.ContentType, "image/") {
		return validationError("metadata-image must have an image content type")
	}
	return nil
}

// PresignedUpload is the result of PresignUpload.
type PresignedUpload struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// DownloadVariant selects the lifetime of a download URL.
type DownloadVariant string

const (
	DownloadVariantDefault DownloadVariant = ""

	// DownloadVariantMetadata is meant for link-preview crawlers that cache URLs
	DownloadVariantMetadata DownloadVariant = "metadata"
)

// PresignDownloadRequest contains parameters for minting a download URL.
type PresignDownloadRequest struct {
	Key     string
	Variant DownloadVariant
}
