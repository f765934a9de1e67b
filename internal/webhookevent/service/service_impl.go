package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/config"
	metafielddomain "github.com/smallbiznis/bankpay/internal/metafield/domain"
	"github.com/smallbiznis/bankpay/internal/webhookevent/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Store   metafielddomain.Store
	Clock   clock.Clock
	GenID   *snowflake.Node
	Gateway *config.GatewayConfigHolder
}

type Service struct {
	log     *zap.Logger
	store   metafielddomain.Store
	clock   clock.Clock
	genID   *snowflake.Node
	gateway *config.GatewayConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("webhookevent.service"),
		store:   p.Store,
		clock:   p.Clock,
		genID:   p.GenID,
		gateway: p.Gateway,
	}
}

func (s *Service) Append(ctx context.Context, shop string, event domain.Event) (domain.Event, bool, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.Event{}, false, domain.ErrInvalidShop
	}
	if strings.TrimSpace(event.WebhookID) == "" {
		event.WebhookID = s.genID.Generate().String()
	}
	event.Processed = false
	event.ProcessedAt = nil
	event.Timestamp = s.clock.Now()

	capacity := s.gateway.Get().WebhookLogCapacity
	duplicate := false
	stored := event

	_, err := metafielddomain.Mutate(ctx, s.store, metafielddomain.ShopWebhookEvents(shop),
		func(current []domain.Event, _ bool) ([]domain.Event, bool, error) {
			for _, existing := range current {
				if existing.WebhookID == event.WebhookID {
					duplicate = true
					stored = existing
					return current, false, nil
				}
			}
			duplicate = false
			stored = event
			return trim(append(current, event), capacity), true, nil
		})
	if err != nil {
		return domain.Event{}, false, err
	}

	if duplicate {
		s.log.Debug("duplicate webhook ignored",
			zap.String("shop", shop),
			zap.String("webhook_id", event.WebhookID),
		)
	}
	return stored, duplicate, nil
}

func (s *Service) MarkProcessed(ctx context.Context, shop, webhookID string) error {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return domain.ErrInvalidShop
	}

	_, err := metafielddomain.Mutate(ctx, s.store, metafielddomain.ShopWebhookEvents(shop),
		func(current []domain.Event, _ bool) ([]domain.Event, bool, error) {
			for i := range current {
				if current[i].WebhookID != webhookID {
					continue
				}
				if current[i].Processed {
					return current, false, nil
				}
				now := s.clock.Now()
				current[i].Processed = true
				current[i].ProcessedAt = &now
				return current, true, nil
			}
			return nil, false, domain.ErrNotFound
		})
	return err
}

func (s *Service) List(ctx context.Context, shop string) ([]domain.Event, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return nil, domain.ErrInvalidShop
	}
	events, _, err := metafielddomain.Load[[]domain.Event](ctx, s.store, metafielddomain.ShopWebhookEvents(shop))
	if errors.Is(err, metafielddomain.ErrMalformedDocument) {
		s.log.Warn("webhook event log unreadable", zap.String("shop", shop), zap.Error(err))
		return []domain.Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

// trim drops the oldest events beyond capacity.
func trim(events []domain.Event, capacity int) []domain.Event {
	if capacity <= 0 || len(events) <= capacity {
		return events
	}
	return append([]domain.Event(nil), events[len(events)-capacity:]...)
}
