package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const maxMutateAttempts = 5

// Load decodes the document at ref into T. A missing document returns the
// zero value with exists=false; undecodable JSON returns ErrMalformedDocument.
func Load[T any](ctx context.Context, store Store, ref Ref) (T, bool, error) {
	var out T
	doc, err := store.Get(ctx, ref)
	if err != nil {
		return out, false, err
	}
	if !doc.Exists() {
		return out, false, nil
	}
	if err := json.Unmarshal(doc.Value, &out); err != nil {
		var zero T
		return zero, false, fmt.Errorf("%w: %s/%s: %v", ErrMalformedDocument, ref.Namespace, ref.Key, err)
	}
	return out, true, nil
}

// MutateFunc returns the next value and whether it must be written.
type MutateFunc[T any] func(current T, exists bool) (next T, write bool, err error)

// Mutate applies fn as an optimistic read-modify-write. A malformed stored
// document is treated as absent and replaced. Version conflicts are retried;
// after the last attempt ErrConcurrentModification is returned.
func Mutate[T any](ctx context.Context, store Store, ref Ref, fn MutateFunc[T]) (T, error) {
	var zero T
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		doc, err := store.Get(ctx, ref)
		if err != nil {
			return zero, err
		}

		var current T
		exists := doc.Exists()
		if exists {
			if err := json.Unmarshal(doc.Value, &current); err != nil {
				var reset T
				current, exists = reset, false
			}
		}

		next, write, err := fn(current, exists)
		if err != nil {
			return zero, err
		}
		if !write {
			return next, nil
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return zero, err
		}
		if _, err := store.Put(ctx, ref, payload, doc.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return zero, err
		}
		return next, nil
	}
	return zero, ErrConcurrentModification
}
