// Package export runs the export pipeline: name, render, embed, save, log.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/exportlog"
	"github.com/quotemaker-dev/quotemaker/internal/id"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// ErrBusy is returned when an export is started while another is running.
var ErrBusy = errors.New("an export is already in progress")

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatXLSX Format = "xlsx"
)

// Formats lists every supported format.
var Formats = []Format{FormatPDF, FormatPNG, FormatJSON, FormatXLSX}

// ParseFormat parses a format name, ignoring case and a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Renderer produces the binary forms of a document.
type Renderer interface {
	PDF(ctx context.Context, doc model.Document) ([]byte, error)
	PNG(ctx context.Context, doc model.Document) ([]byte, error)
	XLSX(ctx context.Context, doc model.Document) ([]byte, error)
}

// Saver writes a file through the save endpoint.
type Saver interface {
	SaveFile(ctx context.Context, filePath string, content []byte, fileType string) (string, error)
}

// Options configures an Exporter.
type Options struct {
	OutputDir string // used when the document has no save path
	LogPath   string // export history CSV; empty disables logging
}

// Result describes a completed export.
type Result struct {
	Path        string
	Format      Format
	Bytes       int
	Destination string
}

// Exporter runs one export at a time.
type Exporter struct {
	renderer Renderer
	saver    Saver
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
	busy     atomic.Bool
}

// New creates an Exporter. saver may be nil, in which case documents with a
// save path are written directly to disk.
func New(renderer Renderer, saver Saver, opts Options, logger *zap.Logger) *Exporter {
	return &Exporter{
		renderer: renderer,
		saver:    saver,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// FileName resolves the export file name: the document's own file name when
// set, otherwise the default name for its title, today and seq.
func FileName(doc model.Document, today time.Time, seq int, format Format) string {
	name := strings.TrimSpace(doc.FileName)
	if name == "" {
		name = id.DefaultFileName(doc.Title, today.Format(time.DateOnly), seq)
	}
	return id.WithExtension(name, format.Extension())
}

// Export renders doc in format and saves it. seq is the current document
// sequence, used for the default file name.
func (e *Exporter) Export(ctx context.Context, doc model.Document, seq int, format Format) (*Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	name := FileName(doc, e.now(), seq, format)

	content, err := e.render(ctx, doc, format)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", format, err)
	}

	result, err := e.save(ctx, doc.SavePath, name, content, format)
	if err != nil {
		return nil, fmt.Errorf("saving %s: %w", name, err)
	}

	e.logger.Info("Document exported",
		zap.String("path", result.Path),
		zap.String("format", string(format)),
		zap.Int("bytes", result.Bytes),
		zap.String("destination", result.Destination))

	if e.opts.LogPath != "" {
		entry := exportlog.Entry{
			Timestamp:      e.now().UTC(),
			Format:         string(format),
			File:           result.Path,
			EstimateNumber: doc.EstimateNumber,
			Bytes:          result.Bytes,
			Destination:    result.Destination,
		}
		if err := exportlog.Append(e.opts.LogPath, entry); err != nil {
			e.logger.Warn("Failed to write export log", zap.Error(err))
		}
	}
	return result, nil
}

func (e *Exporter) render(ctx context.Context, doc model.Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return codec.EncodeJSON(doc)
	case FormatPDF:
		pdf, err := e.renderer.PDF(ctx, doc)
		if err != nil {
			return nil, err
		}
		return codec.Embed(pdf, doc)
	case FormatPNG:
		return e.renderer.PNG(ctx, doc)
	case FormatXLSX:
		return e.renderer.XLSX(ctx, doc)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

func (e *Exporter) save(ctx context.Context, savePath, name string, content []byte, format Format) (*Result, error) {
	result := &Result{Format: format, Bytes: len(content), Destination: exportlog.DestinationLocal}

	dir := e.opts.OutputDir
	if savePath != "" {
		dir = savePath
		// The endpoint only accepts the rendered formats.
		if e.saver != nil && (format == FormatPDF || format == FormatPNG) {
			path, err := e.saver.SaveFile(ctx, filepath.Join(savePath, name), content, string(format))
			if err != nil {
				return nil, err
			}
			result.Path = path
			result.Destination = exportlog.DestinationEndpoint
			return result, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	result.Path = path
	return result, nil
}
