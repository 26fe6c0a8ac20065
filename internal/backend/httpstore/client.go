// Package httpstore implements the service.Store interface over a JSON HTTP endpoint.
//
// The endpoint exposes one resource path per collection:
//
//	GET    /{collection}       -> JSON array of items
//	POST   /{collection}       -> created item with server-assigned id
//	PUT    /{collection}/{id}  -> stored item
//	DELETE /{collection}/{id}  -> empty or ignorable body
//
// Any non-2xx response is a failure of that operation.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/config"
	"tasksync/internal/service"
)

// DefaultTimeout is the transport timeout when the settings do not name one.
const DefaultTimeout = 10 * time.Second

// Client implements service.Store against a REST-like JSON endpoint.
type Client struct {
	http    *http.Client
	baseURL *url.URL
}

// New creates a client from the loaded settings.
// When a token is configured, requests carry it as a bearer credential.
func New(ctx context.Context, settings config.Settings) (*Client, error) {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{}
	if settings.Token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: settings.Token,
			TokenType:   "Bearer",
		}))
	}
	httpClient.Timeout = timeout

	return NewWithHTTPClient(settings.BaseURL, httpClient)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("base url required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url: unsupported scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{http: httpClient, baseURL: u}, nil
}

// List returns every item in the collection.
func (c *Client) List(ctx context.Context, coll service.Collection) ([]service.Item, error) {
	var items []service.Item
	if err := c.do(ctx, http.MethodGet, c.endpoint(coll), nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []service.Item{}
	}
	return items, nil
}

// Create posts a new item. The id is never sent; the server assigns it.
func (c *Client) Create(ctx context.Context, coll service.Collection, item service.Item) (service.Item, error) {
	var created service.Item
	if err := c.do(ctx, http.MethodPost, c.endpoint(coll), newItemBody(item), &created); err != nil {
		return service.Item{}, err
	}
	if created.ID == "" {
		return service.Item{}, fmt.Errorf("create %s: response has no id", coll.Singular())
	}
	return created, nil
}

// Replace puts the complete item under its id.
func (c *Client) Replace(ctx context.Context, coll service.Collection, item service.Item) (service.Item, error) {
	if item.ID == "" {
		return service.Item{}, errors.New("replace: id required")
	}
	var stored service.Item
	if err := c.do(ctx, http.MethodPut, c.endpoint(coll, item.ID), item, &stored); err != nil {
		return service.Item{}, err
	}
	// Some stores answer PUT with an empty body; the request is then authoritative.
	if stored.ID == "" {
		stored = item
	}
	return stored, nil
}

// Delete removes an item by id.
func (c *Client) Delete(ctx context.Context, coll service.Collection, id string) error {
	if id == "" {
		return errors.New("delete: id required")
	}
	return c.do(ctx, http.MethodDelete, c.endpoint(coll, id), nil, nil)
}

func (c *Client) endpoint(coll service.Collection, id ...string) string {
	return c.baseURL.JoinPath(append([]string{string(coll)}, id...)...).String()
}

// do sends one request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response from %s %s: %w", method, endpoint, err)
	}
	return nil
}

// newItem is the POST payload: every item field except the id.
type newItem struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Priority    service.Priority `json:"priority"`
	Author      string           `json:"author"`
	Completed   bool             `json:"completed"`
	CreatedAt   string           `json:"createdAt,omitempty"`
	Capability  string           `json:"capability,omitempty"`
	Role        string           `json:"role,omitempty"`
	Benefit     string           `json:"benefit,omitempty"`
}

func newItemBody(item service.Item) newItem {
	return newItem{
		Title:       item.Title,
		Description: item.Description,
		Priority:    item.Priority,
		Author:      item.Author,
		Completed:   item.Completed,
		CreatedAt:   item.CreatedAt,
		Capability:  item.Capability,
		Role:        item.Role,
		Benefit:     item.Benefit,
	}
}

// wrapError wraps transport and status errors with user-friendly messages.
// The original error stays reachable through errors.As.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request cancelled: %w", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("credentials rejected (status %d): %w", apiErr.Code, err)
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("not found on server: %w", err)
		case apiErr.Code >= 500:
			return fmt.Errorf("server error (status %d): %w", apiErr.Code, err)
		default:
			return fmt.Errorf("request rejected (status %d): %w", apiErr.Code, err)
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("request timed out: %w", err)
	}

	return err
}
