package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/internal/metafield/metafieldtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shop = "demo.myshopify.com"

func TestGetMissingDocument(t *testing.T) {
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))

	doc, err := store.Get(context.Background(), domain.ShopSettings(shop))
	require.NoError(t, err)
	assert.False(t, doc.Exists())
	assert.Zero(t, doc.Version)
}

func TestPutCreatesThenUpdates(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	store := metafieldtest.NewStore(t, clk)
	ctx := context.Background()
	ref := domain.CustomerSavedBanks(shop, "cust_1")

	v1, err := store.Put(ctx, ref, []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	clk.Advance(time.Minute)
	v2, err := store.Put(ctx, ref, []byte(`[{"token":"t1"}]`), v1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	doc, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"token":"t1"}]`, string(doc.Value))
	assert.Equal(t, int64(2), doc.Version)
}

func TestPutRejectsStaleVersion(t *testing.T) {
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))
	ctx := context.Background()
	ref := domain.OrderTransaction(shop, "1001")

	_, err := store.Put(ctx, ref, []byte(`{}`), 0)
	require.NoError(t, err)

	_, err = store.Put(ctx, ref, []byte(`{}`), 0)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = store.Put(ctx, domain.OrderTransaction(shop, "1002"), []byte(`{}`), 3)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestDocumentsAreScopedByShop(t *testing.T) {
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	_, err := store.Put(ctx, domain.CustomerSavedBanks("a.myshopify.com", "cust_1"), []byte(`["a"]`), 0)
	require.NoError(t, err)

	doc, err := store.Get(ctx, domain.CustomerSavedBanks("b.myshopify.com", "cust_1"))
	require.NoError(t, err)
	assert.False(t, doc.Exists())
}

func TestPutRejectsInvalidInput(t *testing.T) {
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	_, err := store.Put(ctx, domain.ShopSettings(shop), []byte(`{not json`), 0)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)

	_, err = store.Put(ctx, domain.ShopSettings(""), []byte(`{}`), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidShop)

	_, err = store.Get(ctx, domain.CustomerSavedBanks(shop, " "))
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}
