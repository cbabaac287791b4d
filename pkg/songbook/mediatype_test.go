package songbook_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/songbook/pkg/songbook"
)

func TestContentTypeByExtension(t *testing.T) {
	tests := map[string]string{
		"berimbau.MP3":      "audio/mpeg",
		"roda.mp4":          "video/mp4",
		"images/1-a.png":    "image/png",
		"clip.mov":          "video/quicktime",
		"no-extension":      "",
		"archive.notatype1": "",
	}
	for name, want := range tests {
		assert.Equal(t, want, songbook.ContentTypeByExtension(name), name)
	}
}
