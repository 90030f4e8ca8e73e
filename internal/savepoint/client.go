package savepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls a save endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the endpoint at baseURL. A zero timeout
// means requests never time out.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SaveFile asks the endpoint to write content to filePath and returns the
// path it wrote.
func (c *Client) SaveFile(ctx context.Context, filePath string, content []byte, fileType string) (string, error) {
	req := SaveFileRequest{
		FilePath:      filePath,
		ContentBase64: DataURI(fileType, content),
		Type:          fileType,
	}
	resp, err := c.post(ctx, "/api/save-file", req)
	if err != nil {
		return "", err
	}
	return resp.Path, nil
}

// SelectFolder submits a folder pick. An empty path is a cancellation and
// yields ErrCancelled.
func (c *Client) SelectFolder(ctx context.Context, path string) (string, error) {
	resp, err := c.post(ctx, "/api/select-folder", SelectFolderRequest{Path: path})
	if err != nil {
		return "", err
	}
	return resp.Path, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding %s response (status %d): %w", endpoint, httpResp.StatusCode, err)
	}
	if !resp.Success {
		if resp.Error == Cancelled {
			return nil, ErrCancelled
		}
		if resp.Error == "" {
			resp.Error = httpResp.Status
		}
		return nil, fmt.Errorf("%s: %s", endpoint, resp.Error)
	}
	return &resp, nil
}
