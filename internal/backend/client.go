// Package backend is the REST client for the logistics master-data API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runger/logistix/internal/domain"
	"github.com/runger/logistix/internal/paging"
)

// DefaultSearchParam is the query parameter carrying the search term when a
// Resource does not name one.
const DefaultSearchParam = "search"

// maxErrorBody bounds how much of a failed response body is kept in APIError.
const maxErrorBody = 4096

// Pagination is the pagination block of a list response.
type Pagination struct {
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	TotalItems  int `json:"totalItems,omitempty"`
	Limit       int `json:"limit,omitempty"`
}

// ListResponse is the envelope returned by every list endpoint.
type ListResponse[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Resource locates a list endpoint relative to the client's base URL.
type Resource struct {
	Path        string // e.g. "customers"
	SearchParam string // defaults to DefaultSearchParam
}

// Client talks to the master-data API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout. Each Client owns its
// http.Client, so the change never leaks to other clients.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken sends token as a Bearer credential on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend: base URL must be http or https (got %q)", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches one page of res. An empty search omits the search parameter.
func List[T any](ctx context.Context, c *Client, res Resource, page, limit int, search string) (paging.Page[T], error) {
	if page < 1 {
		return paging.Page[T]{}, fmt.Errorf("backend: page must be >= 1 (got %d)", page)
	}
	if limit < 1 {
		return paging.Page[T]{}, fmt.Errorf("backend: limit must be > 0 (got %d)", limit)
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		param := res.SearchParam
		if param == "" {
			param = DefaultSearchParam
		}
		q.Set(param, search)
	}

	var body ListResponse[T]
	if err := c.getJSON(ctx, res.Path, q, &body); err != nil {
		return paging.Page[T]{}, err
	}

	current := body.Pagination.CurrentPage
	if current == 0 {
		current = page
	}
	return paging.Page[T]{
		Items:       body.Items,
		TotalPages:  body.Pagination.TotalPages,
		CurrentPage: current,
	}, nil
}

// Fetcher binds res to c as a paging.FetchFunc.
func Fetcher[T any](c *Client, res Resource) paging.FetchFunc[T] {
	return func(ctx context.Context, page, limit int, search string) (paging.Page[T], error) {
		return List[T](ctx, c, res, page, limit, search)
	}
}

// Customers lists customers.
func (c *Client) Customers(ctx context.Context, page, limit int, search string) (paging.Page[domain.Customer], error) {
	return List[domain.Customer](ctx, c, Resource{Path: "customers"}, page, limit, search)
}

// Vendors lists vendors.
func (c *Client) Vendors(ctx context.Context, page, limit int, search string) (paging.Page[domain.Vendor], error) {
	return List[domain.Vendor](ctx, c, Resource{Path: "vendors"}, page, limit, search)
}

// Locations lists locations.
func (c *Client) Locations(ctx context.Context, page, limit int, search string) (paging.Page[domain.Location], error) {
	return List[domain.Location](ctx, c, Resource{Path: "locations"}, page, limit, search)
}

// PriceLists lists customer and vendor price lists.
func (c *Client) PriceLists(ctx context.Context, page, limit int, search string) (paging.Page[domain.PriceList], error) {
	return List[domain.PriceList](ctx, c, Resource{Path: "pricelists"}, page, limit, search)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/"), RawQuery: q.Encode()})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "url", u.String(), "request_id", requestID, "error", err)
		return &NetworkError{Op: "GET", URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"url", u.String(),
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			RequestID:  requestID,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &NetworkError{Op: "GET", URL: u.String(), Err: ctx.Err()}
		}
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

// errorMessage extracts {"message": "..."} from an error body, falling back
// to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}
