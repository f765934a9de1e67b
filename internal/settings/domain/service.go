package domain

import (
	"context"
	"errors"
	"strings"
)

type Service interface {
	// Get never fails on missing or unreadable data; it falls back to
	// Defaults. Secrets are returned decrypted.
	Get(ctx context.Context, shop string) (AppSettings, error)
	// Save validates, encrypts secrets and replaces the whole document.
	Save(ctx context.Context, shop string, settings AppSettings) (AppSettings, error)
}

var (
	ErrInvalidShop     = errors.New("invalid_shop")
	ErrInvalidSettings = errors.New("invalid_settings")
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a save.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "invalid settings: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSettings }
