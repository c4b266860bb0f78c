// Package storage provides SQLite-based persistent storage for the
// master-data records served by the mock API.
package storage

import (
	"context"
	"math"

	"github.com/runger/logistix/internal/domain"
)

// DefaultLimit is used when a Query carries no limit.
const DefaultLimit = 30

// MaxLimit caps a single page.
const MaxLimit = 200

// MaxPage is the highest page whose offset fits in an int at MaxLimit.
const MaxPage = math.MaxInt / MaxLimit

// Store defines the interface for all storage operations.
type Store interface {
	// Listing
	ListCustomers(ctx context.Context, q Query) ([]domain.Customer, int, error)
	ListVendors(ctx context.Context, q Query) ([]domain.Vendor, int, error)
	ListLocations(ctx context.Context, q Query) ([]domain.Location, int, error)
	ListPriceLists(ctx context.Context, q Query) ([]domain.PriceList, int, error)

	// Loading
	InsertCustomers(ctx context.Context, rows []domain.Customer) error
	InsertVendors(ctx context.Context, rows []domain.Vendor) error
	InsertLocations(ctx context.Context, rows []domain.Location) error
	InsertPriceLists(ctx context.Context, rows []domain.PriceList) error
	Count(ctx context.Context, kind domain.Kind) (int, error)

	// Lifecycle
	Close() error
}

// Query selects one page of a collection. Search is matched
// case-insensitively as a substring against the collection's text columns.
type Query struct {
	Search string
	Page   int // 1-based
	Limit  int
}

// Normalize clamps Page and Limit into range.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Offset returns the row offset of the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// TotalPages returns how many pages of limit rows hold total rows.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
