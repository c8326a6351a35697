package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskmgmt-api/internal/api/shared"
	"github.com/phrazzld/taskmgmt-api/internal/service"
)

// getUserIDFromContext extracts the authenticated user's ID from the request
// context. The user ID is placed there by the authentication middleware.
func getUserIDFromContext(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(int64)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}

// getPathID extracts a positive int64 identifier from a URL path parameter.
// A missing or non-numeric value is reported as an invalid-argument error so
// the standard mapping turns it into a 400.
func getPathID(r *http.Request, paramName string) (int64, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return 0, fmt.Errorf("%w: %s is required", service.ErrInvalidArgument, paramName)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", service.ErrInvalidArgument, paramName)
	}

	return id, nil
}

// getPathBool extracts a boolean from a URL path parameter.
func getPathBool(r *http.Request, paramName string) (bool, error) {
	pathParam := chi.URLParam(r, paramName)
	value, err := strconv.ParseBool(pathParam)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", service.ErrInvalidArgument, paramName)
	}
	return value, nil
}
