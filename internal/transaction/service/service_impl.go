package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/bankpay/internal/clock"
	metafielddomain "github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/internal/transaction/domain"
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
		log:   p.Log.Named("transaction.service"),
		store: p.Store,
		clock: p.Clock,
	}
}

func (s *Service) LinkToOrder(ctx context.Context, shop, orderID string, record domain.Record) (domain.Record, error) {
	ref, err := orderRef(shop, orderID)
	if err != nil {
		return domain.Record{}, err
	}
	if !record.Status.Valid() {
		return domain.Record{}, domain.ErrInvalidStatus
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = s.clock.Now()
	}

	saved, err := metafielddomain.Mutate(ctx, s.store, ref,
		func(domain.Record, bool) (domain.Record, bool, error) {
			return record, true, nil
		})
	if err != nil {
		return domain.Record{}, fmt.Errorf("link transaction to order %s: %w", ref.OwnerID, err)
	}

	s.log.Info("transaction linked to order",
		zap.String("shop", ref.Shop),
		zap.String("order_id", ref.OwnerID),
		zap.String("transaction_id", saved.TransactionID),
		zap.String("status", string(saved.Status)),
	)
	return saved, nil
}

func (s *Service) Get(ctx context.Context, shop, orderID string) (domain.Record, error) {
	ref, err := orderRef(shop, orderID)
	if err != nil {
		return domain.Record{}, err
	}

	record, exists, err := metafielddomain.Load[domain.Record](ctx, s.store, ref)
	if errors.Is(err, metafielddomain.ErrMalformedDocument) {
		s.log.Warn("transaction record unreadable", zap.String("order_id", ref.OwnerID), zap.Error(err))
		return domain.Record{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, err
	}
	if !exists {
		return domain.Record{}, domain.ErrNotFound
	}
	return record, nil
}

func (s *Service) Transition(ctx context.Context, shop, orderID string, next domain.Status) (domain.Record, error) {
	return s.Update(ctx, shop, orderID, func(r *domain.Record) { r.Status = next })
}

func (s *Service) Update(ctx context.Context, shop, orderID string, fn func(*domain.Record)) (domain.Record, error) {
	ref, err := orderRef(shop, orderID)
	if err != nil {
		return domain.Record{}, err
	}

	var from domain.Status
	updated, err := metafielddomain.Mutate(ctx, s.store, ref,
		func(current domain.Record, exists bool) (domain.Record, bool, error) {
			if !exists {
				return domain.Record{}, false, domain.ErrNotFound
			}
			from = current.Status
			next := current
			fn(&next)

			if !next.Status.Valid() {
				return domain.Record{}, false, domain.ErrInvalidStatus
			}
			if next.Status != from && !from.CanTransition(next.Status) {
				return domain.Record{}, false, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, from, next.Status)
			}
			if next == current {
				return current, false, nil
			}
			now := s.clock.Now()
			next.UpdatedAt = &now
			return next, true, nil
		})
	if err != nil {
		return domain.Record{}, err
	}

	if updated.Status != from {
		s.log.Info("transaction status changed",
			zap.String("shop", ref.Shop),
			zap.String("order_id", ref.OwnerID),
			zap.String("from", string(from)),
			zap.String("to", string(updated.Status)),
		)
	}
	return updated, nil
}

func orderRef(shop, orderID string) (metafielddomain.Ref, error) {
	shop = strings.TrimSpace(shop)
	orderID = normalizeOrderID(orderID)
	switch {
	case shop == "":
		return metafielddomain.Ref{}, domain.ErrInvalidShop
	case orderID == "":
		return metafielddomain.Ref{}, domain.ErrInvalidOrder
	}
	return metafielddomain.OrderTransaction(shop, orderID), nil
}

// normalizeOrderID accepts both numeric ids and Shopify global ids.
func normalizeOrderID(orderID string) string {
	orderID = strings.TrimSpace(orderID)
	return strings.TrimPrefix(orderID, "gid://shopify/Order/")
}
