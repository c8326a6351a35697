package store

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Pagination errors.
var (
	// ErrOffsetOutOfRange is returned when the effective pagination offset
	// (page times size) exceeds the maximum offset the storage layer
	// supports. It is surfaced distinctly from other invalid-argument
	// conditions so callers and tests can assert on it.
	ErrOffsetOutOfRange = errors.New("pagination offset out of range")
)

// MaxOffset is the largest offset a query may address. Pagination math is
// done in int64, but the storage layer treats offsets as 32-bit signed
// values, so anything beyond this would overflow or address an absurd row.
const MaxOffset = int64(math.MaxInt32)

// Default pagination values applied by Normalize.
const (
	DefaultPageSize   = 10
	DefaultSortField  = "dueDate"
	FallbackSortField = "id"
	sortByPlaceholder = "string" // common Swagger placeholder clients send verbatim
)

// SortDirection indicates ascending or descending sort order.
type SortDirection string

// Valid sort directions.
const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// PageRequest describes pagination and sorting parameters for a listing
// query: a zero-based page index, a page size of at least one, a sort field,
// and a direction. Construct one from client input and call Normalize, then
// Validate, before handing it to a store.
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	Direction SortDirection
}

// DefaultPageRequest returns a PageRequest with the default page, size,
// sort field, and direction.
func DefaultPageRequest() PageRequest {
	return PageRequest{
		Page:      0,
		Size:      DefaultPageSize,
		SortBy:    DefaultSortField,
		Direction: SortAsc,
	}
}

// Normalize coerces out-of-range or placeholder values to safe defaults:
// negative pages become zero, non-positive sizes become DefaultPageSize,
// an empty or placeholder sort field falls back to the identity field, and
// an unrecognized direction becomes ascending. Normalization never fails;
// requests that cannot be served are rejected by Validate instead.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size < 1 {
		r.Size = DefaultPageSize
	}

	sortBy := strings.TrimSpace(r.SortBy)
	if sortBy == "" || strings.EqualFold(sortBy, sortByPlaceholder) {
		// Fall back to a guaranteed-safe field rather than failing the request.
		sortBy = FallbackSortField
	}
	r.SortBy = sortBy

	switch SortDirection(strings.ToUpper(string(r.Direction))) {
	case SortDesc:
		r.Direction = SortDesc
	default:
		r.Direction = SortAsc
	}

	return r
}

// Offset returns the effective row offset (page times size) as an int64 so
// the computation itself cannot overflow for any int page and size.
func (r PageRequest) Offset() int64 {
	return int64(r.Page) * int64(r.Size)
}

// Validate checks that the descriptor's effective offset is representable
// by the storage layer. It must be called before any query executes: a
// pathological request such as page=2, size=2147483647 fails here with
// ErrOffsetOutOfRange instead of wrapping or querying an enormous offset.
func (r PageRequest) Validate() error {
	if offset := r.Offset(); offset > MaxOffset {
		return fmt.Errorf(
			"%w: page (%d) times size (%d) exceeds the maximum supported offset",
			ErrOffsetOutOfRange, r.Page, r.Size,
		)
	}
	return nil
}

// Page is a paged-result envelope: one page of items plus the metadata a
// client needs to iterate the full result set.
type Page[T any] struct {
	Items         []T   `json:"items"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	PageNumber    int   `json:"pageNumber"`
	PageSize      int   `json:"pageSize"`
}

// NewPage builds a Page from the items of one page, the total matching row
// count, and the request that produced it. TotalPages is derived by rounding
// the total up to whole pages.
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}

	return Page[T]{
		Items:         items,
		TotalElements: total,
		TotalPages:    totalPages,
		PageNumber:    req.Page,
		PageSize:      req.Size,
	}
}

// MapPage converts a Page of one item type into a Page of another,
// preserving the page metadata. Used by the service layer to map entities
// to response representations without recomputing totals.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, item := range p.Items {
		items[i] = fn(item)
	}
	return Page[U]{
		Items:         items,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		PageNumber:    p.PageNumber,
		PageSize:      p.PageSize,
	}
}
