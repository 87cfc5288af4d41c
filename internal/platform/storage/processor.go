package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register gif decoder
	"image/jpeg"
	_ "image/png" // register png decoder
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp decoder

	"image-library/internal/domain/gallery"
)

// ImageProcessor implements gallery.ImageProcessor with the standard image
// decoders plus webp, scaling with Catmull-Rom.
type ImageProcessor struct {
	maxWidth  int
	maxHeight int
	quality   int
}

// NewImageProcessor creates a processor that refuses sources larger than
// maxWidth x maxHeight and encodes thumbnails at the given JPEG quality.
func NewImageProcessor(maxWidth, maxHeight, quality int) *ImageProcessor {
	if maxWidth <= 0 {
		maxWidth = 10000
	}
	if maxHeight <= 0 {
		maxHeight = 10000
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	return &ImageProcessor{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		quality:   quality,
	}
}

// GetImageInfo decodes only the image header
func (p *ImageProcessor) GetImageInfo(ctx context.Context, data io.Reader) (*gallery.ImageInfo, error) {
	if data == nil {
		return nil, errors.New("data cannot be nil")
	}

	cfg, format, err := image.DecodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image config: %v", gallery.ErrInvalidContentType, err)
	}

	if err := p.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	return &gallery.ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

// GenerateThumbnail scales the image to fit within maxWidth x maxHeight,
// never upscaling, and encodes it as JPEG. Transparent areas become white.
func (p *ImageProcessor) GenerateThumbnail(ctx context.Context, data io.Reader, maxWidth, maxHeight int) (io.Reader, error) {
	if data == nil {
		return nil, errors.New("data cannot be nil")
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, errors.New("width and height must be positive")
	}

	src, _, err := image.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", gallery.ErrInvalidContentType, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	if err := p.checkDimensions(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}

	w, h := FitWithin(b.Dx(), b.Dy(), maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

func (p *ImageProcessor) checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid image dimensions %dx%d", gallery.ErrInvalidContentType, width, height)
	}
	if width > p.maxWidth || height > p.maxHeight {
		return fmt.Errorf("%w: image dimensions %dx%d exceed maximum %dx%d",
			gallery.ErrInvalidFileSize, width, height, p.maxWidth, p.maxHeight)
	}
	return nil
}

// FitWithin returns the size of a srcWidth x srcHeight box scaled down to fit
// maxWidth x maxHeight with its aspect ratio kept. Each side is at least 1.
func FitWithin(srcWidth, srcHeight, maxWidth, maxHeight int) (int, int) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return maxWidth, maxHeight
	}

	scale := min(float64(maxWidth)/float64(srcWidth), float64(maxHeight)/float64(srcHeight), 1.0)

	return max(int(float64(srcWidth)*scale), 1), max(int(float64(srcHeight)*scale), 1)
}
