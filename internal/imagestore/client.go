// Package imagestore uploads book photos to the external image server.
// The server takes a multipart form with the file under "image" and answers
// {"filePath": "..."}; the returned path is what gets stored on the book.
package imagestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second
	fieldName      = "image"
)

var (
	ErrNoPath = errors.New("no path returned from image server")
	// 画像参照はカンマ区切りで保存するため
	ErrBadPath = errors.New("image server returned a path containing a comma")
)

type Config struct {
	URL           string
	Timeout       time.Duration
	RatePerSecond float64 // 0 なら無制限
	Burst         int
}

type Client struct {
	url     string
	hc      *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		url:     cfg.URL,
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

type uploadResponse struct {
	FilePath string `json:"filePath"`
}

// Store uploads data as name and returns the server-side path.
func (c *Client) Store(ctx context.Context, data []byte, name string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(fieldName, name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload %s failed: %s %s", name, resp.Status, bytes.TrimSpace(msg))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("upload %s: decode response: %w", name, err)
	}
	if out.FilePath == "" {
		return "", ErrNoPath
	}
	if strings.Contains(out.FilePath, ",") {
		return "", fmt.Errorf("upload %s: %w: %q", name, ErrBadPath, out.FilePath)
	}
	return out.FilePath, nil
}
