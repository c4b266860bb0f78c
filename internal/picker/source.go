package picker

import (
	"context"

	"github.com/runger/logistix/internal/paging"
)

// Option is one selectable entry.
type Option struct {
	Value       string `json:"value"` // Identifier passed to OnValueChange
	Label       string `json:"label"`
	Description string `json:"description,omitempty"` // Secondary text, may be empty
}

// Source is the data capability the picker pulls options from.
// Implementations might call a REST API, a local store, or a fixed list.
type Source interface {
	FetchPage(ctx context.Context, page, limit int, search string) (paging.Page[Option], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, page, limit int, search string) (paging.Page[Option], error)

// FetchPage implements Source.
func (f SourceFunc) FetchPage(ctx context.Context, page, limit int, search string) (paging.Page[Option], error) {
	return f(ctx, page, limit, search)
}

// Compile-time check that SourceFunc implements Source.
var _ Source = SourceFunc(nil)

// MapSource turns a fetcher of domain records into a Source, mapping every
// record through toOption. Option text is cleaned for terminal display.
func MapSource[T any](fetch paging.FetchFunc[T], toOption func(T) Option) Source {
	return SourceFunc(func(ctx context.Context, page, limit int, search string) (paging.Page[Option], error) {
		p, err := fetch(ctx, page, limit, search)
		if err != nil {
			return paging.Page[Option]{}, err
		}
		opts := make([]Option, 0, len(p.Items))
		for _, item := range p.Items {
			o := toOption(item)
			o.Label = CleanText(o.Label)
			o.Description = CleanText(o.Description)
			opts = append(opts, o)
		}
		return paging.Page[Option]{
			Items:       opts,
			TotalPages:  p.TotalPages,
			CurrentPage: p.CurrentPage,
		}, nil
	})
}
