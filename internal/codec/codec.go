// Package codec serializes documents as plain JSON and as a recovery block
// appended to a rendered binary (PDF) export.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/quotemaker-dev/quotemaker/internal/model"
)

// Recovery block delimiters. The block is
//
//	\n%---INVOICE_DATA_START---%\n<percent-encoded JSON>\n%---INVOICE_DATA_END---%
//
// and always follows the last byte of the original binary.
const (
	StartMarker = "\n%---INVOICE_DATA_START---%\n"
	EndMarker   = "\n%---INVOICE_DATA_END---%"
)

var (
	// ErrInvalidJSON means a standalone JSON import could not be parsed.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrNoEmbeddedData means a binary carried no recovery block.
	ErrNoEmbeddedData = errors.New("no embedded data")
	// ErrCorruptData means a recovery block was found but could not be decoded.
	ErrCorruptData = errors.New("corrupt embedded data")
)

// EncodeJSON serializes doc.
func EncodeJSON(doc model.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a serialized document.
func DecodeJSON(data []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("unmarshaling document: %w", err)
	}
	return doc, nil
}

// ImportJSON parses a standalone JSON export.
func ImportJSON(data []byte) (model.Document, error) {
	doc, err := DecodeJSON(data)
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return doc, nil
}

// Embed returns binary followed by the recovery block for doc. binary itself
// is never modified.
func Embed(binary []byte, doc model.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	encoded := url.PathEscape(string(data))

	out := make([]byte, 0, len(binary)+len(StartMarker)+len(encoded)+len(EndMarker))
	out = append(out, binary...)
	out = append(out, StartMarker...)
	out = append(out, encoded...)
	out = append(out, EndMarker...)
	return out, nil
}

// ExtractFromBinary recovers the document embedded by Embed.
func ExtractFromBinary(data []byte) (model.Document, error) {
	start := bytes.Index(data, []byte(StartMarker))
	if start < 0 {
		return model.Document{}, ErrNoEmbeddedData
	}
	payload := data[start+len(StartMarker):]
	end := bytes.Index(payload, []byte(EndMarker))
	if end < 0 {
		return model.Document{}, ErrNoEmbeddedData
	}

	raw, err := url.PathUnescape(string(payload[:end]))
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	doc, err := DecodeJSON([]byte(raw))
	if err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return doc, nil
}
