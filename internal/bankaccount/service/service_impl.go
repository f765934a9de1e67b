package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	"github.com/smallbiznis/bankpay/internal/clock"
	metafielddomain "github.com/smallbiznis/bankpay/internal/metafield/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Store metafielddomain.Store
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	store metafielddomain.Store
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("bankaccount.service"),
		store: p.Store,
		clock: p.Clock,
	}
}

func (s *Service) List(ctx context.Context, shop, customerID string) ([]domain.BankAccount, error) {
	ref, err := savedBanksRef(shop, customerID)
	if err != nil {
		return nil, err
	}

	accounts, _, err := metafielddomain.Load[[]domain.BankAccount](ctx, s.store, ref)
	if errors.Is(err, metafielddomain.ErrMalformedDocument) {
		s.log.Warn("saved banks unreadable, treating as empty",
			zap.String("shop", ref.Shop),
			zap.String("customer_id", ref.OwnerID),
			zap.Error(err),
		)
		return []domain.BankAccount{}, nil
	}
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []domain.BankAccount{}
	}
	return accounts, nil
}

func (s *Service) Add(ctx context.Context, shop, customerID string, account domain.BankAccount) (domain.BankAccount, error) {
	ref, err := savedBanksRef(shop, customerID)
	if err != nil {
		return domain.BankAccount{}, err
	}
	account.Token = strings.TrimSpace(account.Token)
	if account.Token == "" {
		return domain.BankAccount{}, domain.ErrInvalidToken
	}

	var result domain.BankAccount
	_, err = metafielddomain.Mutate(ctx, s.store, ref,
		func(current []domain.BankAccount, _ bool) ([]domain.BankAccount, bool, error) {
			if idx := indexOf(current, account.Token); idx >= 0 {
				result = current[idx]
				return current, false, nil
			}
			entry := account
			entry.IsActive = true
			entry.DateAdded = s.clock.Now()
			result = entry
			return append(current, entry), true, nil
		})
	if err != nil {
		return domain.BankAccount{}, err
	}

	s.log.Info("bank account saved",
		zap.String("shop", ref.Shop),
		zap.String("customer_id", ref.OwnerID),
		zap.String("bank_name", result.BankName),
		zap.String("last4", result.Last4),
	)
	return result, nil
}

func (s *Service) Remove(ctx context.Context, shop, customerID, token string) error {
	ref, err := savedBanksRef(shop, customerID)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}

	_, err = metafielddomain.Mutate(ctx, s.store, ref,
		func(current []domain.BankAccount, _ bool) ([]domain.BankAccount, bool, error) {
			idx := indexOf(current, token)
			if idx < 0 {
				return current, false, nil
			}
			next := make([]domain.BankAccount, 0, len(current)-1)
			next = append(next, current[:idx]...)
			next = append(next, current[idx+1:]...)
			return next, true, nil
		})
	return err
}

func (s *Service) SetActive(ctx context.Context, shop, customerID, token string, active bool) error {
	ref, err := savedBanksRef(shop, customerID)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}

	_, err = metafielddomain.Mutate(ctx, s.store, ref,
		func(current []domain.BankAccount, _ bool) ([]domain.BankAccount, bool, error) {
			idx := indexOf(current, token)
			if idx < 0 || current[idx].IsActive == active {
				return current, false, nil
			}
			current[idx].IsActive = active
			return current, true, nil
		})
	if err != nil {
		return err
	}
	if !active {
		s.log.Info("bank account deactivated",
			zap.String("shop", ref.Shop),
			zap.String("customer_id", ref.OwnerID),
		)
	}
	return nil
}

func (s *Service) Export(ctx context.Context, shop, customerID string) ([]domain.ExportedAccount, error) {
	accounts, err := s.List(ctx, shop, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExportedAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Export())
	}
	return out, nil
}

func savedBanksRef(shop, customerID string) (metafielddomain.Ref, error) {
	shop = strings.TrimSpace(shop)
	customerID = strings.TrimSpace(customerID)
	switch {
	case shop == "":
		return metafielddomain.Ref{}, domain.ErrInvalidShop
	case customerID == "":
		return metafielddomain.Ref{}, domain.ErrInvalidCustomer
	}
	return metafielddomain.CustomerSavedBanks(shop, customerID), nil
}

func indexOf(accounts []domain.BankAccount, token string) int {
	for i, a := range accounts {
		if a.Token == token {
			return i
		}
	}
	return -1
}
