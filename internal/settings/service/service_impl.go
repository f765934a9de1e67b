package service

import (
	"context"
	"errors"
	"strings"

	metafielddomain "github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/internal/secret"
	"github.com/smallbiznis/bankpay/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Store  metafielddomain.Store
	Cipher *secret.Cipher
}

type Service struct {
	log    *zap.Logger
	store  metafielddomain.Store
	cipher *secret.Cipher
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("settings.service"),
		store:  p.Store,
		cipher: p.Cipher,
	}
}

func (s *Service) Get(ctx context.Context, shop string) (domain.AppSettings, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.AppSettings{}, domain.ErrInvalidShop
	}

	stored, exists, err := metafielddomain.Load[domain.AppSettings](ctx, s.store, metafielddomain.ShopSettings(shop))
	switch {
	case errors.Is(err, metafielddomain.ErrMalformedDocument):
		s.log.Warn("stored settings unreadable, using defaults", zap.String("shop", shop), zap.Error(err))
		return domain.Defaults(), nil
	case err != nil:
		s.log.Error("failed to load settings, using defaults", zap.String("shop", shop), zap.Error(err))
		return domain.Defaults(), nil
	case !exists:
		return domain.Defaults(), nil
	}

	stored = stored.WithDefaults()
	stored.TestClientSecret = s.reveal(shop, "testClientSecret", stored.TestClientSecret)
	stored.LiveClientSecret = s.reveal(shop, "liveClientSecret", stored.LiveClientSecret)
	return stored, nil
}

func (s *Service) Save(ctx context.Context, shop string, settings domain.AppSettings) (domain.AppSettings, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.AppSettings{}, domain.ErrInvalidShop
	}

	settings = normalize(settings)
	if err := settings.Validate(); err != nil {
		return domain.AppSettings{}, err
	}

	ref := metafielddomain.ShopSettings(shop)
	saved, err := metafielddomain.Mutate(ctx, s.store, ref,
		func(current domain.AppSettings, exists bool) (domain.AppSettings, bool, error) {
			next := settings
			next.TestClientSecret = keepMasked(next.TestClientSecret, current.TestClientSecret, exists)
			next.LiveClientSecret = keepMasked(next.LiveClientSecret, current.LiveClientSecret, exists)

			var err error
			if next.TestClientSecret, err = s.cipher.Encrypt(next.TestClientSecret); err != nil {
				return domain.AppSettings{}, false, err
			}
			if next.LiveClientSecret, err = s.cipher.Encrypt(next.LiveClientSecret); err != nil {
				return domain.AppSettings{}, false, err
			}
			return next, true, nil
		})
	if err != nil {
		return domain.AppSettings{}, err
	}

	s.log.Info("settings saved",
		zap.String("shop", shop),
		zap.Bool("test_mode", saved.TestMode),
		zap.Bool("credentials_configured", saved.HasCredentials()),
	)

	saved.TestClientSecret = s.reveal(shop, "testClientSecret", saved.TestClientSecret)
	saved.LiveClientSecret = s.reveal(shop, "liveClientSecret", saved.LiveClientSecret)
	return saved, nil
}

// reveal decrypts a stored secret. An undecryptable value is dropped so the
// merchant is prompted to re-enter it.
func (s *Service) reveal(shop, field, value string) string {
	plain, err := s.cipher.Decrypt(value)
	if err != nil {
		s.log.Warn("stored secret could not be decrypted",
			zap.String("shop", shop),
			zap.String("field", field),
			zap.Error(err),
		)
		return ""
	}
	return plain
}

func keepMasked(incoming, stored string, exists bool) string {
	if incoming != domain.SecretMask {
		return incoming
	}
	if !exists {
		return ""
	}
	return stored
}

func normalize(in domain.AppSettings) domain.AppSettings {
	trim := []*string{
		&in.TestGatewayURL, &in.TestClientID, &in.TestConnectedAccount, &in.TestScriptURL, &in.TestRedirectURL,
		&in.LiveGatewayURL, &in.LiveClientID, &in.LiveConnectedAccount, &in.LiveScriptURL, &in.LiveRedirectURL,
		&in.ClientName, &in.ThemeColor, &in.ThemeLogo,
		&in.PostTransactionStatus, &in.WebhookSuccessStatus, &in.WebhookFailedStatus,
	}
	for _, p := range trim {
		*p = strings.TrimSpace(*p)
	}
	in.TestClientSecret = strings.TrimSpace(in.TestClientSecret)
	in.LiveClientSecret = strings.TrimSpace(in.LiveClientSecret)
	return in.WithDefaults()
}
