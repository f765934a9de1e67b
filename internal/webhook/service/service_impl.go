package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	"github.com/smallbiznis/bankpay/internal/config"
	"github.com/smallbiznis/bankpay/internal/observability/logger"
	"github.com/smallbiznis/bankpay/internal/observability/metrics"
	transactiondomain "github.com/smallbiznis/bankpay/internal/transaction/domain"
	"github.com/smallbiznis/bankpay/internal/webhook/domain"
	webhookeventdomain "github.com/smallbiznis/bankpay/internal/webhookevent/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg          config.Config
	Log          *zap.Logger
	Events       webhookeventdomain.Service
	Banks        bankaccountdomain.Service
	Transactions transactiondomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	shopifySecret string
	fingridSecret string
	log           *zap.Logger
	events        webhookeventdomain.Service
	banks         bankaccountdomain.Service
	transactions  transactiondomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		shopifySecret: p.Cfg.Shopify.APISecret,
		fingridSecret: p.Cfg.Vendor.WebhookSecret,
		log:           p.Log.Named("webhook.service"),
		events:        p.Events,
		banks:         p.Banks,
		transactions:  p.Transactions,
		metrics:       p.Metrics,
	}
}

type shopifyPayload struct {
	ID         json.Number `json:"id"`
	ShopDomain string      `json:"shop_domain"`
	Customer   *struct {
		ID json.Number `json:"id"`
	} `json:"customer"`
}

func (s *Service) IngestShopify(ctx context.Context, topic string, payload []byte, headers http.Header) (domain.Result, error) {
	if err := VerifyShopify(s.shopifySecret, payload, headers); err != nil {
		if errors.Is(err, domain.ErrSecretNotConfigured) {
			s.log.Error("shopify webhook rejected, app secret not configured")
		}
		return domain.Result{}, err
	}
	if !json.Valid(payload) {
		return domain.Result{}, domain.ErrInvalidPayload
	}

	topic = strings.ToLower(strings.Trim(strings.TrimSpace(topic), "/"))
	if topic == "" {
		topic = strings.ToLower(strings.TrimSpace(headers.Get(domain.HeaderShopifyTopic)))
	}
	if topic != domain.TopicOrdersPaid && topic != domain.TopicCustomerDataRequest {
		s.log.Debug("shopify webhook ignored", zap.String("topic", topic))
		return domain.Result{}, domain.ErrEventIgnored
	}

	var body shopifyPayload
	if err := decode(payload, &body); err != nil {
		return domain.Result{}, domain.ErrInvalidPayload
	}

	shop := strings.TrimSpace(headers.Get(domain.HeaderShopifyShop))
	if shop == "" {
		shop = strings.TrimSpace(body.ShopDomain)
	}
	if shop == "" {
		return domain.Result{}, domain.ErrMissingShop
	}
	log := logger.WithShop(logger.WithContext(ctx, s.log), shop).With(zap.String("topic", topic))

	event, duplicate, err := s.events.Append(ctx, shop, webhookeventdomain.Event{
		WebhookID:     strings.TrimSpace(headers.Get(domain.HeaderShopifyWebhookID)),
		Source:        webhookeventdomain.SourceShopify,
		TransactionID: body.ID.String(),
		EventType:     topic,
		Payload:       json.RawMessage(payload),
	})
	if err != nil {
		log.Error("failed to log shopify webhook", zap.Error(err))
		return domain.Result{}, err
	}
	s.metrics.RecordWebhookEvent(ctx, webhookeventdomain.SourceShopify, topic)

	result := domain.Result{Event: event, Duplicate: duplicate}
	if duplicate && event.Processed {
		log.Info("shopify webhook already processed", zap.String("webhook_id", event.WebhookID))
		return result, nil
	}

	switch topic {
	case domain.TopicOrdersPaid:
		log.Info("order paid", zap.String("order_id", body.ID.String()))
	case domain.TopicCustomerDataRequest:
		if body.Customer == nil || body.Customer.ID.String() == "" {
			log.Warn("data request without customer")
			break
		}
		exported, err := s.banks.Export(ctx, shop, body.Customer.ID.String())
		if err != nil {
			log.Error("failed to export saved banks", zap.Error(err))
			return domain.Result{}, err
		}
		result.Export = exported
		log.Info("customer data request exported",
			zap.String("customer_id", body.Customer.ID.String()),
			zap.Int("bank_count", len(exported)),
		)
	}

	if err := s.events.MarkProcessed(ctx, shop, event.WebhookID); err != nil {
		log.Warn("failed to mark shopify webhook processed", zap.Error(err))
	} else {
		result.Event.Processed = true
	}
	return result, nil
}

func (s *Service) IngestFingrid(ctx context.Context, payload []byte, headers http.Header) (domain.Result, error) {
	if err := VerifyFingrid(s.fingridSecret, payload, headers); err != nil {
		if errors.Is(err, domain.ErrSecretNotConfigured) {
			s.log.Error("fingrid webhook rejected, webhook secret not configured")
		}
		return domain.Result{}, err
	}

	var body domain.FingridEvent
	if err := decode(payload, &body); err != nil {
		return domain.Result{}, domain.ErrInvalidPayload
	}
	shop := strings.TrimSpace(body.Shop)
	if shop == "" {
		return domain.Result{}, domain.ErrMissingShop
	}

	eventType := strings.TrimSpace(body.EventType)
	if eventType == "" {
		eventType = "transaction." + strings.ToLower(strings.TrimSpace(body.Status))
	}
	log := logger.WithShop(logger.WithContext(ctx, s.log), shop).With(
		zap.String("event_type", eventType),
		zap.String("transaction_id", body.TransactionID),
	)

	event, duplicate, err := s.events.Append(ctx, shop, webhookeventdomain.Event{
		WebhookID:     strings.TrimSpace(body.EventID),
		Source:        webhookeventdomain.SourceFingrid,
		TransactionID: strings.TrimSpace(body.TransactionID),
		EventType:     eventType,
		Payload:       json.RawMessage(payload),
	})
	if err != nil {
		log.Error("failed to log fingrid webhook", zap.Error(err))
		return domain.Result{}, err
	}
	s.metrics.RecordWebhookEvent(ctx, webhookeventdomain.SourceFingrid, eventType)

	result := domain.Result{Event: event, Duplicate: duplicate}
	if duplicate && event.Processed {
		log.Info("fingrid webhook already processed", zap.String("webhook_id", event.WebhookID))
		return result, nil
	}

	if err := s.applyStatus(ctx, log, shop, body); err != nil {
		return domain.Result{}, err
	}

	if err := s.events.MarkProcessed(ctx, shop, event.WebhookID); err != nil {
		log.Warn("failed to mark fingrid webhook processed", zap.Error(err))
	} else {
		result.Event.Processed = true
	}
	return result, nil
}

// applyStatus moves the order's record to the reported status. Events that
// cannot apply are logged and treated as handled; store failures are
// returned so the processor retries.
func (s *Service) applyStatus(ctx context.Context, log *zap.Logger, shop string, body domain.FingridEvent) error {
	orderID := strings.TrimSpace(body.OrderID)
	if orderID == "" {
		log.Info("fingrid webhook has no order")
		return nil
	}
	status, ok := vendorStatus(body.Status)
	if !ok {
		log.Warn("fingrid webhook status not recognised", zap.String("status", body.Status))
		return nil
	}

	current, err := s.transactions.Get(ctx, shop, orderID)
	if err == nil && current.Status.Terminal() {
		log.Info("fingrid webhook for settled transaction ignored",
			zap.String("order_id", orderID),
			zap.String("current_status", string(current.Status)),
			zap.String("status", string(status)),
		)
		return nil
	}

	record, err := s.transactions.Transition(ctx, shop, orderID, status)
	switch {
	case err == nil:
		log.Info("transaction status updated",
			zap.String("order_id", orderID),
			zap.String("status", string(record.Status)),
		)
		return nil
	case errors.Is(err, transactiondomain.ErrNotFound):
		log.Warn("fingrid webhook for unknown order", zap.String("order_id", orderID))
		return nil
	case errors.Is(err, transactiondomain.ErrInvalidTransition):
		log.Warn("fingrid webhook status transition rejected",
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
		)
		return nil
	default:
		log.Error("failed to update transaction", zap.String("order_id", orderID), zap.Error(err))
		return err
	}
}

func vendorStatus(raw string) (transactiondomain.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "success", "succeeded", "settled":
		return transactiondomain.StatusCompleted, true
	case "failed", "failure", "returned", "declined":
		return transactiondomain.StatusFailed, true
	case "cancelled", "canceled", "voided":
		return transactiondomain.StatusCancelled, true
	case "processing", "pending_settlement":
		return transactiondomain.StatusProcessing, true
	case "refunded":
		return transactiondomain.StatusRefunded, true
	}
	return "", false
}

func decode(payload []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	return dec.Decode(v)
}
