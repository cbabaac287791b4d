// Package imagecrop prepares link-preview images: a centered 1.91:1 crop
// scaled to 1200x628.
package imagecrop

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/nfnt/resize"
)

// Output size of a metadata image
const (
	TargetWidth  = 1200
	TargetHeight = 628
	Aspect       = 1.91

	ContentType = "image/jpeg"
)

// CenterCropRect returns the largest rectangle of the given width:height
// aspect centered in bounds.
func CenterCropRect(bounds image.Rectangle, aspect float64) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 || aspect <= 0 {
		return bounds
	}

	cropW, cropH := w, h
	if float64(w)/float64(h) > aspect {
		cropW = int(math.Round(float64(h) * aspect))
	} else {
		cropH = int(math.Round(float64(w) / aspect))
	}

	x := bounds.Min.X + (w-cropW)/2
	y := bounds.Min.Y + (h-cropH)/2
	return image.Rect(x, y, x+cropW, y+cropH)
}

// CropToAspect crops img to 1.91:1 around its center and scales the result
// to TargetWidth x TargetHeight.
func CropToAspect(img image.Image) image.Image {
	rect := CenterCropRect(img.Bounds(), Aspect)

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, rect.Min, draw.Src)

	return resize.Resize(TargetWidth, TargetHeight, cropped, resize.Lanczos3)
}

// Process decodes a JPEG, PNG or GIF, crops it and re-encodes it as JPEG
func Process(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, CropToAspect(img), &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
