package service

import (
	"errors"
	"strings"

	"go-retail-catalog/internal/importer"
)

var (
	ErrInvalidInput      = errors.New("invalid import input")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductReferenced = errors.New("product has stock movements, deactivate it instead")
)

// ValidationError lists every rule a product draft broke.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// ConflictError wraps a blocking conflict, or a confirm-level one that the
// caller did not acknowledge.
type ConflictError struct {
	Conflict *importer.Conflict
}

func (e *ConflictError) Error() string {
	return e.Conflict.Message
}

func checkConflict(c *importer.Conflict, allowIdentical bool) error {
	if c == nil {
		return nil
	}
	if c.Blocking() || !allowIdentical {
		return &ConflictError{Conflict: c}
	}
	return nil
}
