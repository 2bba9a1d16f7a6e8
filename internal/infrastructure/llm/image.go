package llm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// PNGDataURL downscales img to at most maxWidth (0 keeps the original size)
// and returns it as a base64 PNG data URL.
func PNGDataURL(img image.Image, maxWidth int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image to encode")
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
