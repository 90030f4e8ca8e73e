// Package savepoint implements the local save-to-path and folder-picker
// endpoint, both the gin server and the client used by exports.
package savepoint

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Cancelled is the error message returned when no folder was chosen.
const Cancelled = "Cancelled"

// ErrCancelled is returned by the client when the user cancels a folder pick.
var ErrCancelled = errors.New("cancelled")

// File types accepted by /api/save-file.
const (
	TypePDF = "pdf"
	TypePNG = "png"
)

var mimeTypes = map[string]string{
	TypePDF: "application/pdf",
	TypePNG: "image/png",
}

// Response is the body of every endpoint reply.
type Response struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SaveFileRequest is the body of POST /api/save-file.
type SaveFileRequest struct {
	FilePath      string `json:"filePath" binding:"required"`
	ContentBase64 string `json:"contentBase64" binding:"required"`
	Type          string `json:"type" binding:"required"`
}

// SelectFolderRequest is the body of POST /api/select-folder. An empty path
// means the pick was cancelled.
type SelectFolderRequest struct {
	Path string `json:"path"`
}

// DataURI encodes content as a base64 data URI of the given file type.
func DataURI(fileType string, content []byte) string {
	mime, ok := mimeTypes[fileType]
	if !ok {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// decodeDataURI accepts a base64 data URI or bare base64 text.
func decodeDataURI(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("content is not a base64 data URI")
		}
		s = payload
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}
	return raw, nil
}
