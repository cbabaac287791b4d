package objectkey

import (
	"fmt"
	"strings"
	"time"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for a media kind and original filename
	GenerateKey(kind, filename string) (string, error)
}

var prefixes = map[string]string{
	"audio":          "audio",
	"video":          "videos",
	"image":          "images",
	"metadata-image": "metadata-images",
}

// Prefix returns the key prefix for a media kind.
func Prefix(kind string) (string, bool) {
	p, ok := prefixes[kind]
	return p, ok
}

// Generate builds <prefix>/<unix-millis>-<sanitized filename>.
func Generate(kind, filename string, now time.Time) (string, error) {
	prefix, ok := Prefix(kind)
	if !ok {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	return fmt.Sprintf("%s/%d-%s", prefix, now.UnixMilli(), SanitizeFilename(filename)), nil
}

// TimestampGenerator prefixes keys with the current time in milliseconds.
// Two uploads of the same filename in the same millisecond collide.
type TimestampGenerator struct {
	// Now defaults to time.Now
	Now func() time.Time
}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{Now: time.Now}
}

func (g *TimestampGenerator) GenerateKey(kind, filename string) (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Generate(kind, filename, now())
}

// SanitizeFilename replaces every character outside [A-Za-z0-9.-] with '_'.
func SanitizeFilename(filename string) string {
	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
