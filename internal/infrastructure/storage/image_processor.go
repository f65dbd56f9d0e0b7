package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// ImageProcessor checks uploaded images and downsizes oversize ones.
type ImageProcessor struct {
	MaxSize int64 // bytes
	MaxEdge int   // pixels, 0 disables downsizing
}

func NewImageProcessor(maxSize int64, maxEdge int) *ImageProcessor {
	return &ImageProcessor{MaxSize: maxSize, MaxEdge: maxEdge}
}

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// ValidateImage returns the decoded format, or an error if data is too big
// or not a jpeg/png/gif image.
func (p *ImageProcessor) ValidateImage(data []byte) (string, error) {
	if int64(len(data)) > p.MaxSize {
		return "", fmt.Errorf("image exceeds %d bytes", p.MaxSize)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("not an image: %w", err)
	}
	if _, ok := contentTypes[format]; !ok {
		return "", fmt.Errorf("image format %s not allowed (jpeg, png, gif)", format)
	}
	return format, nil
}

// Prepare validates data and returns the bytes to store with their content
// type. Images within MaxEdge pass through untouched; larger ones are fit
// into MaxEdge x MaxEdge and re-encoded as JPEG.
func (p *ImageProcessor) Prepare(data []byte) ([]byte, string, error) {
	format, err := p.ValidateImage(data)
	if err != nil {
		return nil, "", err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("not an image: %w", err)
	}
	if p.MaxEdge <= 0 || (cfg.Width <= p.MaxEdge && cfg.Height <= p.MaxEdge) {
		return data, contentTypes[format], nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("cannot decode image: %w", err)
	}
	resized := imaging.Fit(img, p.MaxEdge, p.MaxEdge, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return nil, "", fmt.Errorf("cannot encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
