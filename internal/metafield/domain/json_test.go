package domain

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	docs      map[Ref]Document
	conflicts int
	puts      int
}

func newMemStore() *memStore {
	return &memStore{docs: map[Ref]Document{}}
}

func (m *memStore) Get(_ context.Context, ref Ref) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[ref], nil
}

func (m *memStore) Put(_ context.Context, ref Ref, value []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.conflicts > 0 {
		m.conflicts--
		return 0, ErrVersionConflict
	}
	if m.docs[ref].Version != expected {
		return 0, ErrVersionConflict
	}
	next := expected + 1
	m.docs[ref] = Document{Value: append([]byte(nil), value...), Version: next}
	return next, nil
}

var ref = CustomerSavedBanks("demo.myshopify.com", "cust_1")

func TestLoadMissing(t *testing.T) {
	out, exists, err := Load[[]string](context.Background(), newMemStore(), ref)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, out)
}

func TestLoadMalformed(t *testing.T) {
	store := newMemStore()
	store.docs[ref] = Document{Value: []byte(`{"broken"`), Version: 1}

	_, _, err := Load[[]string](context.Background(), store, ref)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestMutateRetriesConflicts(t *testing.T) {
	store := newMemStore()
	store.conflicts = 2

	out, err := Mutate(context.Background(), store, ref, func(cur []string, _ bool) ([]string, bool, error) {
		return append(cur, "x"), true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, out)
	assert.Equal(t, 3, store.puts)
}

func TestMutateGivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemStore()
	store.conflicts = maxMutateAttempts

	_, err := Mutate(context.Background(), store, ref, func(cur []string, _ bool) ([]string, bool, error) {
		return cur, true, nil
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestMutateSkipsWriteWhenUnchanged(t *testing.T) {
	store := newMemStore()

	_, err := Mutate(context.Background(), store, ref, func(cur []string, _ bool) ([]string, bool, error) {
		return cur, false, nil
	})
	require.NoError(t, err)
	assert.Zero(t, store.puts)
}

func TestMutateReplacesMalformedDocument(t *testing.T) {
	store := newMemStore()
	store.docs[ref] = Document{Value: []byte(`"not a list"`), Version: 4}

	out, err := Mutate(context.Background(), store, ref, func(cur []string, exists bool) ([]string, bool, error) {
		assert.False(t, exists)
		return append(cur, "fresh"), true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, out)
	assert.Equal(t, int64(5), store.docs[ref].Version)
}

func TestMutatePropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Mutate(context.Background(), newMemStore(), ref, func(cur []string, _ bool) ([]string, bool, error) {
		return nil, false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentMutationsAreNotLost(t *testing.T) {
	store := newMemStore()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Mutate(context.Background(), store, ref, func(cur []int, _ bool) ([]int, bool, error) {
				return append(cur, 1), true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	out, _, err := Load[[]int](context.Background(), store, ref)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestRefValidate(t *testing.T) {
	assert.NoError(t, ShopSettings("demo.myshopify.com").Validate())
	assert.ErrorIs(t, Ref{Shop: "s", OwnerType: "product", OwnerID: "1", Namespace: "n", Key: "k"}.Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, Ref{Shop: "s", OwnerType: OwnerShop, OwnerID: "1"}.Validate(), ErrInvalidKey)
}
