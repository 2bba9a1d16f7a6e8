package render

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// MaxScreenshotPixels bounds decoded screenshots; larger inputs are rejected
// before annotation.
const MaxScreenshotPixels = 8192 * 8192

func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot %s: %w", path, err)
	}
	return checkSize(img)
}

func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return checkSize(img)
}

func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func checkSize(img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Dx()*b.Dy() > MaxScreenshotPixels {
		return nil, fmt.Errorf("screenshot %dx%d exceeds %d pixels", b.Dx(), b.Dy(), MaxScreenshotPixels)
	}
	return img, nil
}
