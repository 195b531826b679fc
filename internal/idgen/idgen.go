package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier. Override in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }

// NewRunID returns an identifier scoped to a single simulator run.
func NewRunID(prefix string) string {
	if prefix == "" {
		return New()
	}
	return prefix + "/" + New()
}
