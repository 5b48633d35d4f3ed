package service

import (
	"errors"

	"github.com/iliyamo/booktable/internal/model"
)

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, model.ErrPermissionDenied):
		return "forbidden"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	}
	return "error"
}
