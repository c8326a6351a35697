package shared

import (
	"net/http"
	"strconv"

	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// ParsePageRequest builds a pagination descriptor from the request's query
// string. Recognized parameters are page, size, sortBy, and direction;
// anything absent or unparseable falls back to the store defaults via
// Normalize, so listing endpoints never fail on bad pagination input alone.
func ParsePageRequest(r *http.Request) store.PageRequest {
	q := r.URL.Query()
	req := store.DefaultPageRequest()

	if raw := q.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			req.Page = page
		}
	}
	if raw := q.Get("size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			req.Size = size
		}
	}
	if sortBy := q.Get("sortBy"); sortBy != "" {
		req.SortBy = sortBy
	}
	if direction := q.Get("direction"); direction != "" {
		req.Direction = store.SortDirection(direction)
	}

	return req.Normalize()
}
