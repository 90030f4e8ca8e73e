package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quotemaker-dev/quotemaker/internal/document"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// ErrUnsupportedFormat is returned for files no registered importer accepts.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Importer turns the bytes of an exported file back into a Document.
type Importer interface {
	Import(data []byte) (model.Document, error)
	Extension() string
}

// Registry holds importers keyed by file extension.
type Registry struct {
	importers map[string]Importer
}

// FileInfo describes an importable file in a directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty importer registry.
func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

// Register adds an importer. Panics on duplicate extension.
func (r *Registry) Register(imp Importer) {
	key := strings.ToLower(imp.Extension())
	if _, ok := r.importers[key]; ok {
		panic("duplicate importer extension: " + key)
	}
	r.importers[key] = imp
}

// Get returns the importer for a file name's extension, or nil.
func (r *Registry) Get(fileName string) Importer {
	return r.importers[strings.ToLower(filepath.Ext(fileName))]
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.importers))
	for ext := range r.importers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry returns a registry with the JSON and PDF importers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(JSONImporter{})
	r.Register(PDFImporter{})
	return r
}

// Import decodes data according to the extension of fileName and applies
// numeric coercion to the result.
func (r *Registry) Import(fileName string, data []byte) (model.Document, error) {
	imp := r.Get(fileName)
	if imp == nil {
		return model.Document{}, r.unsupported(fileName)
	}
	doc, err := imp.Import(data)
	if err != nil {
		return model.Document{}, err
	}
	return document.Normalize(doc), nil
}

func (r *Registry) unsupported(fileName string) error {
	return fmt.Errorf("%w: %q (supported: %s)",
		ErrUnsupportedFormat, filepath.Ext(fileName), strings.Join(r.Extensions(), ", "))
}

// ImportFile reads path and imports it.
func (r *Registry) ImportFile(path string) (model.Document, error) {
	if r.Get(path) == nil {
		return model.Document{}, r.unsupported(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return r.Import(path, data)
}

// Scan returns the files in dir that a registered importer accepts.
func (r *Registry) Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || r.Get(e.Name()) == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}
