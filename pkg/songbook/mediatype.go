package songbook

import (
	"mime"
	"path/filepath"
	"strings"
)

// mediaTypes covers extensions missing from the builtin mime table
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// ContentTypeByExtension guesses a MIME type from a file name or extension.
// It returns "" when the extension is unknown.
func ContentTypeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}
