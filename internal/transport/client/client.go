package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Client represents an HTTP client for the link API
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// StatusError is returned for unexpected response codes
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known codes onto domain errors
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusGone:
		return domain.ErrExpired
	case http.StatusConflict:
		return domain.ErrSlugTaken
	case http.StatusServiceUnavailable:
		return domain.ErrSlugSpaceExhausted
	default:
		return nil
	}
}

// CreateURL shortens a URL
func (c *Client) CreateURL(ctx context.Context, req domain.CreateURLRequest) (*domain.CreateURLResponse, error) {
	var result domain.CreateURLResponse
	if err := c.do(ctx, http.MethodPost, "/api/urls", req, &result, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetURL retrieves details of a short link
func (c *Client) GetURL(ctx context.Context, slug string) (*domain.LinkResponse, error) {
	var link domain.LinkResponse
	if err := c.do(ctx, http.MethodGet, "/api/urls/"+url.PathEscape(slug), nil, &link, http.StatusOK); err != nil {
		return nil, err
	}
	return &link, nil
}

// DeactivateURL disables a short link
func (c *Client) DeactivateURL(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/api/urls/"+url.PathEscape(slug), nil, nil, http.StatusNoContent)
}

// ListURLs retrieves short links newest first, filtered by owner when set
func (c *Client) ListURLs(ctx context.Context, owner string) ([]domain.LinkResponse, error) {
	path := "/api/urls"
	if owner != "" {
		path += "?" + url.Values{"owner": {owner}}.Encode()
	}

	var links []domain.LinkResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &links, http.StatusOK); err != nil {
		return nil, err
	}
	return links, nil
}

// Analytics retrieves the click analytics of a short link
func (c *Client) Analytics(ctx context.Context, slug string) (*domain.Analytics, error) {
	var stats domain.Analytics
	if err := c.do(ctx, http.MethodGet, "/analytics/"+url.PathEscape(slug)+"/", nil, &stats, http.StatusOK); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if !lo.Contains(accept, resp.StatusCode) {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
