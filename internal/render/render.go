// Package render turns a document into its exported binary forms.
package render

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

const defaultDPI = 150

// Options tunes the renderer.
type Options struct {
	FontPath string // UTF-8 TTF; core fonts are used when empty
	DPI      int    // PNG resolution
}

// Renderer produces PDF, PNG and XLSX output for a document.
type Renderer struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Renderer.
func New(opts Options, logger *zap.Logger) *Renderer {
	if opts.DPI <= 0 {
		opts.DPI = defaultDPI
	}
	return &Renderer{opts: opts, logger: logger, now: time.Now}
}

var configOnce sync.Once

// PageCount parses data as a PDF and returns its number of pages.
func PageCount(data []byte) (int, error) {
	configOnce.Do(api.DisableConfigDir)

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("reading pdf: %w", err)
	}
	return n, nil
}
