package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/bankpay/internal/clock"
	metafielddomain "github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/internal/metafield/metafieldtest"
	"github.com/smallbiznis/bankpay/internal/secret"
	"github.com/smallbiznis/bankpay/internal/settings/domain"
	"github.com/smallbiznis/bankpay/internal/settings/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const shop = "demo.myshopify.com"

func newService(t *testing.T) (domain.Service, metafielddomain.Store) {
	t.Helper()
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))
	svc := service.New(service.Params{
		Log:    zap.NewNop(),
		Store:  store,
		Cipher: secret.NewWithKey("test-passphrase"),
	})
	return svc, store
}

func TestGetReturnsDefaultsWhenMissing(t *testing.T) {
	svc, _ := newService(t)

	got, err := svc.Get(context.Background(), shop)
	require.NoError(t, err)
	assert.True(t, got.TestMode)
	assert.Zero(t, got.DiscountPercentage)
	assert.Equal(t, "Payment Gateway", got.ClientName)
	assert.Equal(t, "#1a73e8", got.ThemeColor)
	assert.Equal(t, "pending", got.PostTransactionStatus)
	assert.Equal(t, "paid", got.WebhookSuccessStatus)
	assert.Equal(t, "cancelled", got.WebhookFailedStatus)
	assert.Empty(t, got.TestClientID)
	assert.Empty(t, got.LiveClientSecret)
	assert.False(t, got.HasCredentials())
}

func TestGetRejectsEmptyShop(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidShop)
}

func TestGetFallsBackOnMalformedDocument(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := store.Put(ctx, metafielddomain.ShopSettings(shop), []byte(`"not an object"`), 0)
	require.NoError(t, err)

	got, err := svc.Get(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, domain.Defaults(), got)
}

func TestSaveEncryptsSecretsAtRest(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	in := domain.Defaults()
	in.TestClientID = "client_abc"
	in.TestClientSecret = "s3cret"
	in.TestConnectedAccount = "acct_1"

	saved, err := svc.Save(ctx, shop, in)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", saved.TestClientSecret)

	doc, err := store.Get(ctx, metafielddomain.ShopSettings(shop))
	require.NoError(t, err)
	assert.NotContains(t, string(doc.Value), "s3cret")
	assert.Contains(t, string(doc.Value), `"testClientId":"client_abc"`)

	got, err := svc.Get(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.TestClientSecret)
	assert.True(t, got.HasCredentials())
	assert.True(t, got.HasConnectedAccount())
}

func TestSaveKeepsSecretWhenMasked(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := domain.Defaults()
	in.LiveClientSecret = "live-secret"
	_, err := svc.Save(ctx, shop, in)
	require.NoError(t, err)

	redacted, err := svc.Get(ctx, shop)
	require.NoError(t, err)
	redacted = redacted.Redacted()
	assert.Equal(t, domain.SecretMask, redacted.LiveClientSecret)
	assert.Empty(t, redacted.TestClientSecret)

	redacted.ClientName = "Acme Pay"
	_, err = svc.Save(ctx, shop, redacted)
	require.NoError(t, err)

	got, err := svc.Get(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, "live-secret", got.LiveClientSecret)
	assert.Equal(t, "Acme Pay", got.ClientName)
}

func TestSaveReplacesWholeDocument(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first := domain.Defaults()
	first.TestClientID = "old"
	first.DiscountPercentage = 5
	_, err := svc.Save(ctx, shop, first)
	require.NoError(t, err)

	second := domain.Defaults()
	second.TestMode = false
	second.LiveClientID = "live"
	_, err = svc.Save(ctx, shop, second)
	require.NoError(t, err)

	got, err := svc.Get(ctx, shop)
	require.NoError(t, err)
	assert.Empty(t, got.TestClientID)
	assert.Zero(t, got.DiscountPercentage)
	assert.False(t, got.TestMode)
	assert.Equal(t, "live", got.Active().ClientID)
}

func TestSaveValidatesFields(t *testing.T) {
	svc, _ := newService(t)

	in := domain.Defaults()
	in.DiscountPercentage = 150
	in.ThemeColor = "blue"
	in.TestGatewayURL = "not a url"
	in.ClientName = strings.Repeat("x", 101)

	_, err := svc.Save(context.Background(), shop, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, "lte", fields["discountPercentage"])
	assert.Equal(t, "themecolor", fields["themeColor"])
	assert.Equal(t, "url", fields["testGatewayUrl"])
	assert.Equal(t, "max", fields["clientName"])
}

func TestSaveFillsBlankDisplayFields(t *testing.T) {
	svc, _ := newService(t)

	saved, err := svc.Save(context.Background(), shop, domain.AppSettings{TestMode: true})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultClientName, saved.ClientName)
	assert.Equal(t, domain.DefaultThemeColor, saved.ThemeColor)
	assert.Equal(t, "paid", saved.WebhookSuccessStatus)
}

func TestSaveWithoutEncryptionKeyFails(t *testing.T) {
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))
	svc := service.New(service.Params{Log: zap.NewNop(), Store: store, Cipher: secret.NewWithKey("")})

	in := domain.Defaults()
	in.TestClientSecret = "s3cret"
	_, err := svc.Save(context.Background(), shop, in)
	assert.ErrorIs(t, err, secret.ErrEncryptionKeyMissing)

	doc, err := store.Get(context.Background(), metafielddomain.ShopSettings(shop))
	require.NoError(t, err)
	assert.False(t, doc.Exists())
}

func TestGetDropsUndecryptableSecret(t *testing.T) {
	store := metafieldtest.NewStore(t, clock.NewFakeClock(time.Now()))
	writer := service.New(service.Params{Log: zap.NewNop(), Store: store, Cipher: secret.NewWithKey("key-one")})
	reader := service.New(service.Params{Log: zap.NewNop(), Store: store, Cipher: secret.NewWithKey("key-two")})
	ctx := context.Background()

	in := domain.Defaults()
	in.TestClientID = "client"
	in.TestClientSecret = "s3cret"
	_, err := writer.Save(ctx, shop, in)
	require.NoError(t, err)

	got, err := reader.Get(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, "client", got.TestClientID)
	assert.Empty(t, got.TestClientSecret)
}
