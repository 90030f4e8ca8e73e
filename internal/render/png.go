package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// PNG renders the first page of doc's PDF as an image.
func (r *Renderer) PNG(ctx context.Context, doc model.Document) ([]byte, error) {
	pdf, err := r.PDF(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("opening rendered pdf: %w", err)
	}
	defer f.Close()

	img, err := f.ImageDPI(0, float64(r.opts.DPI))
	if err != nil {
		return nil, fmt.Errorf("rasterizing page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	r.logger.Debug("PNG rendered",
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("pages", f.NumPage()))
	return buf.Bytes(), nil
}
