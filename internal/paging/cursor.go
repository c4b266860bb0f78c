// Package paging tracks incremental, search-scoped loading of a remote
// paginated collection.
//
// A Cursor owns the accumulated items for the committed search term and
// hands out Requests. Every Request carries the generation of the term it
// was issued for; Resolve drops responses whose generation is no longer
// current, so the last committed search always wins regardless of the
// order in which responses arrive.
package paging

import "context"

// DefaultPageSize is used when a Cursor is created with a non-positive size.
const DefaultPageSize = 30

// Page is one response from a paginated list endpoint.
type Page[T any] struct {
	Items       []T
	TotalPages  int
	CurrentPage int
}

// FetchFunc loads one page. An empty search means unfiltered.
type FetchFunc[T any] func(ctx context.Context, page, limit int, search string) (Page[T], error)

// Request describes a single page fetch issued by a Cursor.
type Request struct {
	Generation uint64 // Search generation the request belongs to
	Page       int
	Limit      int
	Search     string
}

// Outcome reports what Resolve did with a response.
type Outcome int

const (
	Applied Outcome = iota // Response merged into the cursor
	Failed                 // Response carried an error; cursor records it
	Stale                  // Response belongs to a superseded request; ignored
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Cursor accumulates pages for one search term at a time.
// It is not safe for concurrent use; callers serialize access (the picker
// only touches it from its Update loop).
type Cursor[T any] struct {
	key      func(T) string
	pageSize int

	search      string
	items       []T
	seen        map[string]struct{}
	currentPage int
	totalPages  int

	generation uint64
	started    bool
	pending    *Request // In-flight request for the current generation
	failed     *Request // Last failed request, eligible for Retry
	err        error
}

// New creates a Cursor. key returns the identifier used for deduplication.
func New[T any](pageSize int, key func(T) string) *Cursor[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Cursor[T]{
		key:         key,
		pageSize:    pageSize,
		seen:        make(map[string]struct{}),
		currentPage: 1,
	}
}

// Start issues the initial page-1 request for term. It returns false if the
// cursor was already started, so repeated calls never re-trigger the fetch.
func (c *Cursor[T]) Start(term string) (Request, bool) {
	if c.started {
		return Request{}, false
	}
	c.started = true
	c.generation++
	c.search = term
	return c.issue(1), true
}

// Commit makes term the authoritative search term: the current page resets
// to 1 and the accumulated items are cleared before the page-1 request is
// returned. Committing the term that is already active is a no-op unless
// the last fetch failed.
func (c *Cursor[T]) Commit(term string) (Request, bool) {
	if !c.started {
		return c.Start(term)
	}
	if term == c.search && c.err == nil {
		return Request{}, false
	}
	c.generation++
	c.search = term
	c.reset()
	return c.issue(1), true
}

// LoadMore returns the request for the next page when one exists and no
// fetch is in flight.
func (c *Cursor[T]) LoadMore() (Request, bool) {
	if !c.HasMore() {
		return Request{}, false
	}
	return c.issue(c.currentPage + 1), true
}

// Retry re-issues the last failed request. A failed page 1 is retried as a
// fresh page-1 fetch for the same term; a failed load-more retries the same
// page without touching the items already accumulated.
func (c *Cursor[T]) Retry() (Request, bool) {
	if c.pending != nil || c.failed == nil {
		return Request{}, false
	}
	return c.issue(c.failed.Page), true
}

// Resolve applies the response to req. Responses for superseded
// generations, or for a request that is no longer pending, are Stale and
// leave the cursor untouched.
func (c *Cursor[T]) Resolve(req Request, page Page[T], err error) Outcome {
	if req.Generation != c.generation || c.pending == nil || c.pending.Page != req.Page {
		return Stale
	}
	c.pending = nil

	if err != nil {
		if req.Page == 1 {
			c.reset()
		}
		failed := req
		c.failed = &failed
		c.err = err
		return Failed
	}

	c.err = nil
	c.failed = nil
	if req.Page == 1 {
		c.reset()
	}
	for _, item := range page.Items {
		k := c.key(item)
		if _, dup := c.seen[k]; dup {
			continue
		}
		c.seen[k] = struct{}{}
		c.items = append(c.items, item)
	}

	c.totalPages = page.TotalPages
	c.currentPage = req.Page
	if c.totalPages > 0 && c.currentPage > c.totalPages {
		c.currentPage = c.totalPages
	}
	return Applied
}

// HasMore reports whether LoadMore would issue a request.
func (c *Cursor[T]) HasMore() bool {
	return c.pending == nil && c.totalPages > 0 && c.currentPage < c.totalPages
}

// Items returns the accumulated items. The slice must not be modified.
func (c *Cursor[T]) Items() []T { return c.items }

// Len returns the number of accumulated items.
func (c *Cursor[T]) Len() int { return len(c.items) }

// Search returns the committed search term.
func (c *Cursor[T]) Search() string { return c.search }

// CurrentPage returns the last page applied (1 before any response).
func (c *Cursor[T]) CurrentPage() int { return c.currentPage }

// TotalPages returns the page count reported by the last response.
func (c *Cursor[T]) TotalPages() int { return c.totalPages }

// PageSize returns the fixed page size.
func (c *Cursor[T]) PageSize() int { return c.pageSize }

// Generation returns the generation of the committed search term.
func (c *Cursor[T]) Generation() uint64 { return c.generation }

// Started reports whether the initial request has been issued.
func (c *Cursor[T]) Started() bool { return c.started }

// Fetching reports whether a request for the current generation is in flight.
func (c *Cursor[T]) Fetching() bool { return c.pending != nil }

// LoadingMore reports whether a page>1 request is in flight.
func (c *Cursor[T]) LoadingMore() bool { return c.pending != nil && c.pending.Page > 1 }

// Err returns the error of the last resolved request, or nil.
func (c *Cursor[T]) Err() error { return c.err }

func (c *Cursor[T]) issue(page int) Request {
	req := Request{
		Generation: c.generation,
		Page:       page,
		Limit:      c.pageSize,
		Search:     c.search,
	}
	c.pending = &req
	return req
}

func (c *Cursor[T]) reset() {
	c.items = nil
	clear(c.seen)
	c.currentPage = 1
	c.totalPages = 0
	c.err = nil
	c.failed = nil
}
