package domain

import (
	"context"
	"errors"
)

// Store reads and conditionally writes JSON documents.
type Store interface {
	Get(ctx context.Context, ref Ref) (Document, error)
	// Put writes value when the stored version still equals expectedVersion
	// (zero creates the document) and returns the new version.
	Put(ctx context.Context, ref Ref, value []byte, expectedVersion int64) (int64, error)
}

var (
	ErrInvalidShop            = errors.New("invalid_shop")
	ErrInvalidOwner           = errors.New("invalid_owner")
	ErrInvalidKey             = errors.New("invalid_key")
	ErrVersionConflict        = errors.New("version_conflict")
	ErrMalformedDocument      = errors.New("malformed_document")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
