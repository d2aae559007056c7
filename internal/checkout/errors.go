package checkout

import (
	"errors"
	"sort"
	"strings"
)

var ErrEmptyCart = errors.New("cart empty")

// ValidationError lists per-field problems with the checkout details.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CheckoutError means the commit was rolled back; nothing was persisted.
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string { return "checkout failed: " + e.Err.Error() }

func (e *CheckoutError) Unwrap() error { return e.Err }
