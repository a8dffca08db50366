// Package client is the HTTP API client used by the terminal front end.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jun/watchlist/internal/model"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the watch list API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for baseURL using http.DefaultClient.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	zerolog.Ctx(ctx).Debug().Str("method", method).Str("path", path).Msg("api request")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func itemPath(itemID string) string {
	return "/watchList/" + url.PathEscape(itemID)
}

// ListItems fetches the caller's watch list.
func (c *Client) ListItems(ctx context.Context, token string) ([]model.WatchListItem, error) {
	var out struct {
		Items []model.WatchListItem `json:"items"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/watchList", nil, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []model.WatchListItem{}
	}
	return out.Items, nil
}

// CreateItem adds an item and returns it as stored by the server.
func (c *Client) CreateItem(ctx context.Context, token string, req model.CreateItemRequest) (*model.WatchListItem, error) {
	var out struct {
		Item *model.WatchListItem `json:"item"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/watchList", req, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// UpdateItem renames an item and returns the updated record.
func (c *Client) UpdateItem(ctx context.Context, token, itemID string, req model.UpdateItemRequest) (*model.WatchListItem, error) {
	var out struct {
		UpdatedItem *model.WatchListItem `json:"updatedItem"`
	}
	if err := c.do(ctx, token, http.MethodPatch, itemPath(itemID), req, &out); err != nil {
		return nil, err
	}
	return out.UpdatedItem, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, token, itemID string) error {
	return c.do(ctx, token, http.MethodDelete, itemPath(itemID), nil, nil)
}

// GetUploadURL asks for a short-lived URL to PUT the item's attachment to.
func (c *Client) GetUploadURL(ctx context.Context, token, itemID string) (string, error) {
	var out struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := c.do(ctx, token, http.MethodPost, itemPath(itemID)+"/attachment", nil, &out); err != nil {
		return "", err
	}
	return out.UploadURL, nil
}

// UploadFile PUTs the file content to a pre-signed URL. No API credentials are sent.
// The body is always sent with a known length; S3 rejects chunked uploads to
// pre-signed URLs.
func (c *Client) UploadFile(ctx context.Context, uploadURL string, file io.Reader) error {
	body, size, err := sizedBody(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

// sizedBody returns file with its remaining length. Files are measured with
// Stat; readers of unknown length are buffered.
func sizedBody(file io.Reader) (io.Reader, int64, error) {
	switch f := file.(type) {
	case nil:
		return nil, 0, nil
	case *bytes.Reader:
		return f, int64(f.Len()), nil
	case *bytes.Buffer:
		return f, int64(f.Len()), nil
	case *strings.Reader:
		return f, int64(f.Len()), nil
	case *os.File:
		info, err := f.Stat()
		if err == nil && info.Mode().IsRegular() {
			offset, err := f.Seek(0, io.SeekCurrent)
			if err == nil {
				return f, info.Size() - offset, nil
			}
		}
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(raw), int64(len(raw)), nil
}
