package importer

import (
	"github.com/quotemaker-dev/quotemaker/internal/codec"
	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// JSONImporter reads plain JSON exports.
type JSONImporter struct{}

// Extension returns ".json".
func (JSONImporter) Extension() string { return ".json" }

// Import parses data as a serialized document.
func (JSONImporter) Import(data []byte) (model.Document, error) {
	return codec.ImportJSON(data)
}

// PDFImporter recovers the document embedded at the end of a PDF export.
type PDFImporter struct{}

// Extension returns ".pdf".
func (PDFImporter) Extension() string { return ".pdf" }

// Import extracts the recovery block from data.
func (PDFImporter) Import(data []byte) (model.Document, error) {
	return codec.ExtractFromBinary(data)
}
