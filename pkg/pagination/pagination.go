// Package pagination windows ordered result sets by limit and offset.
package pagination

import "fmt"

// Params holds pagination parameters. A zero Limit means no limit.
type Params struct {
	Limit  int
	Offset int
}

// New normalises raw flag values: negative values are treated as zero.
func New(limit, offset int) Params {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// Page is one window of a larger result.
type Page[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

// Apply returns the window of items selected by p. Items keep their order.
func Apply[T any](items []T, p Params) Page[T] {
	p = New(p.Limit, p.Offset)
	total := len(items)
	start := p.Offset
	if start > total {
		start = total
	}
	end := total
	if p.Limit > 0 && start+p.Limit < total {
		end = start + p.Limit
	}
	return Page[T]{Items: items[start:end], Total: total, Limit: p.Limit, Offset: p.Offset}
}

// Summary describes the window, e.g. "showing 21-40 of 45".
func (pg Page[T]) Summary() string {
	if len(pg.Items) == 0 {
		return fmt.Sprintf("showing 0 of %d", pg.Total)
	}
	return fmt.Sprintf("showing %d-%d of %d", pg.Offset+1, pg.Offset+len(pg.Items), pg.Total)
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}
