package domain

import "errors"

// Sentinel errors shared across services and adapters. Wrap with
// fmt.Errorf("...: %w", Err...) so callers can classify with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDataIntegrity = errors.New("data integrity violation")
)
