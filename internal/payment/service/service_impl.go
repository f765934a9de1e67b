package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	"github.com/smallbiznis/bankpay/internal/config"
	fingriddomain "github.com/smallbiznis/bankpay/internal/fingrid/domain"
	obscontext "github.com/smallbiznis/bankpay/internal/observability/context"
	"github.com/smallbiznis/bankpay/internal/observability/logger"
	"github.com/smallbiznis/bankpay/internal/observability/metrics"
	"github.com/smallbiznis/bankpay/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/bankpay/internal/settings/domain"
	transactiondomain "github.com/smallbiznis/bankpay/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg          config.Config
	Log          *zap.Logger
	Settings     settingsdomain.Service
	Banks        bankaccountdomain.Service
	Transactions transactiondomain.Service
	Clients      fingriddomain.ClientFactory
	Locker       domain.OrderLocker
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg          config.Config
	log          *zap.Logger
	settings     settingsdomain.Service
	banks        bankaccountdomain.Service
	transactions transactiondomain.Service
	clients      fingriddomain.ClientFactory
	locker       domain.OrderLocker
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:          p.Cfg,
		log:          p.Log.Named("payment.service"),
		settings:     p.Settings,
		banks:        p.Banks,
		transactions: p.Transactions,
		clients:      p.Clients,
		locker:       p.Locker,
		metrics:      p.Metrics,
	}
}

func (s *Service) GenerateLinkToken(ctx context.Context, in domain.LinkTokenInput) (fingriddomain.LinkToken, error) {
	settings, err := s.loadConfigured(ctx, in.Shop)
	if err != nil {
		return fingriddomain.LinkToken{}, err
	}
	client := s.clients.NewClient(profile(settings))
	return client.GenerateLinkToken(ctx, fingriddomain.LinkTokenRequest{
		Customer:  in.Customer,
		ReturnURL: strings.TrimSpace(in.ReturnURL),
	})
}

func (s *Service) ExchangePublicToken(ctx context.Context, in domain.ExchangeInput) (domain.ExchangeResult, error) {
	publicToken := strings.TrimSpace(in.PublicToken)
	if publicToken == "" {
		return domain.ExchangeResult{}, domain.ErrMissingPublicToken
	}
	settings, err := s.loadConfigured(ctx, in.Shop)
	if err != nil {
		return domain.ExchangeResult{}, err
	}

	link, err := s.clients.NewClient(profile(settings)).ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return domain.ExchangeResult{}, err
	}

	result := domain.ExchangeResult{BankLink: link}
	customerID := strings.TrimSpace(in.CustomerID)
	if customerID == "" {
		return result, nil
	}

	_, err = s.banks.Add(ctx, in.Shop, customerID, bankaccountdomain.BankAccount{
		Token:    link.BankToken,
		BankName: link.BankName,
		Last4:    link.Last4,
	})
	if err != nil {
		// The bank is linked on the processor side; the customer can still pay
		// with the returned token.
		s.logger(ctx, in.Shop).Error("failed to save linked bank account",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return result, nil
	}
	result.Saved = true
	return result, nil
}

func (s *Service) ProcessPayment(ctx context.Context, in domain.ChargeInput) (domain.ChargeResult, error) {
	shop := strings.TrimSpace(in.Shop)
	if shop == "" {
		return domain.ChargeResult{}, domain.ErrInvalidShop
	}
	bankToken := strings.TrimSpace(in.BankToken)
	if bankToken == "" {
		return domain.ChargeResult{}, domain.ErrMissingBankToken
	}
	if !in.Amount.IsPositive() {
		return domain.ChargeResult{}, domain.ErrInvalidAmount
	}
	if in.Amount.LessThan(domain.MinimumAmount) {
		return domain.ChargeResult{}, domain.ErrAmountBelowMinimum
	}
	currency := domain.NormalizeCurrency(in.Currency)

	settings, err := s.loadConfigured(ctx, shop)
	if err != nil {
		return domain.ChargeResult{}, err
	}
	if !settings.HasConnectedAccount() {
		return domain.ChargeResult{}, domain.ErrConnectedAccountNotConfigured
	}
	due := in.Amount
	if in.ApplyDiscount {
		due = domain.DiscountedTotal(in.Amount, decimal.NewFromFloat(settings.DiscountPercentage))
		if due.LessThan(domain.MinimumAmount) {
			return domain.ChargeResult{}, domain.ErrAmountBelowMinimum
		}
	}
	// The minimum applies to the exact amount; rounding is for the charge only.
	amount := due.Round(domain.MinorUnits(currency))

	log := s.logger(ctx, shop)
	orderID := strings.TrimSpace(in.OrderID)
	if orderID != "" {
		release, err := s.lockOrder(ctx, shop, orderID)
		if err != nil {
			return domain.ChargeResult{}, err
		}
		defer release()

		if replay, ok := s.replay(ctx, shop, orderID); ok {
			log.Info("payment already recorded for order, not charging again",
				zap.String("order_id", orderID),
				zap.String("transaction_id", replay.TransactionID),
			)
			return replay, nil
		}
	}

	metadata := strings.TrimSpace(in.Metadata)
	if metadata == "" && orderID != "" {
		metadata = "OrderId#" + orderID
	}

	client := s.clients.NewClient(profile(settings))
	res := client.ProcessPayment(ctx, fingriddomain.ChargeRequest{
		BankToken:           bankToken,
		Amount:              amount,
		Currency:            currency,
		CustomerID:          strings.TrimSpace(in.CustomerID),
		StatementDescriptor: strings.TrimSpace(in.StatementDescriptor),
		Metadata:            metadata,
		IPAddress:           strings.TrimSpace(in.IPAddress),
	})
	s.recordPayment(ctx, transactiondomain.TypeCharge, res)

	result := domain.ChargeResult{TransferResult: res, Amount: amount, Currency: currency}
	if !res.Success {
		log.Warn("payment declined",
			zap.String("order_id", orderID),
			zap.String("vendor_code", res.VendorCode),
			zap.String("failure", string(res.Failure)),
		)
		return result, nil
	}

	log.Info("payment accepted",
		zap.String("order_id", orderID),
		zap.String("transaction_id", res.TransactionID),
		zap.String("vendor_status", res.Status),
	)
	if orderID == "" {
		return result, nil
	}

	charged := amount
	if res.ChargedAmount.Valid {
		charged = res.ChargedAmount.Decimal
	}
	record, err := s.transactions.LinkToOrder(ctx, shop, orderID, transactiondomain.Record{
		TransactionID:   res.TransactionID,
		BankToken:       bankToken,
		Status:          initialStatus(res.Status),
		Amount:          charged,
		Currency:        currency,
		TransactionType: transactiondomain.TypeCharge,
		VendorStatus:    res.Status,
		VendorCode:      res.VendorCode,
	})
	if err != nil {
		// The charge went through; failing here would invite a second one.
		log.Error("failed to link transaction to order",
			zap.String("order_id", orderID),
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err),
		)
		return result, nil
	}
	result.Record = &record
	return result, nil
}

func (s *Service) RefundPayment(ctx context.Context, in domain.RefundInput) (domain.RefundResult, error) {
	shop := strings.TrimSpace(in.Shop)
	if shop == "" {
		return domain.RefundResult{}, domain.ErrInvalidShop
	}
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return domain.RefundResult{}, domain.ErrMissingOrderID
	}

	settings, err := s.loadConfigured(ctx, shop)
	if err != nil {
		return domain.RefundResult{}, err
	}
	if !settings.HasConnectedAccount() {
		return domain.RefundResult{}, domain.ErrConnectedAccountNotConfigured
	}

	release, err := s.lockOrder(ctx, shop, orderID)
	if err != nil {
		return domain.RefundResult{}, err
	}
	defer release()

	record, err := s.GetOrderTransaction(ctx, shop, orderID)
	if err != nil {
		return domain.RefundResult{}, err
	}
	if record.Status != transactiondomain.StatusCompleted {
		return domain.RefundResult{}, domain.ErrNotRefundable
	}

	amount := record.Amount
	if in.Amount.Valid {
		if !in.Amount.Decimal.IsPositive() {
			return domain.RefundResult{}, domain.ErrInvalidAmount
		}
		if in.Amount.Decimal.GreaterThan(record.Amount) {
			return domain.RefundResult{}, domain.ErrRefundExceedsCharge
		}
		amount = in.Amount.Decimal
	}

	client := s.clients.NewClient(profile(settings))
	res := client.RefundPayment(ctx, fingriddomain.RefundRequest{
		OrderID:               orderID,
		OriginalTransactionID: record.TransactionID,
		BankToken:             record.BankToken,
		Amount:                amount,
	})
	s.recordPayment(ctx, transactiondomain.TypeRefund, res)

	result := domain.RefundResult{TransferResult: res}
	log := s.logger(ctx, shop)
	if !res.Success {
		log.Warn("refund declined",
			zap.String("order_id", orderID),
			zap.String("vendor_code", res.VendorCode),
		)
		return result, nil
	}

	updated, err := s.transactions.Update(ctx, shop, orderID, func(r *transactiondomain.Record) {
		r.Status = transactiondomain.StatusRefunded
		r.RefundID = res.TransactionID
	})
	if err != nil {
		log.Error("refund sent but transaction not updated",
			zap.String("order_id", orderID),
			zap.String("refund_id", res.TransactionID),
			zap.Error(err),
		)
		return result, nil
	}
	log.Info("payment refunded", zap.String("order_id", orderID), zap.String("refund_id", res.TransactionID))
	result.Record = &updated
	return result, nil
}

func (s *Service) CheckBankHealth(ctx context.Context, in domain.BankTokenInput) (domain.HealthResult, error) {
	bankToken := strings.TrimSpace(in.BankToken)
	if bankToken == "" {
		return domain.HealthResult{}, domain.ErrMissingBankToken
	}
	settings, err := s.loadConfigured(ctx, in.Shop)
	if err != nil {
		return domain.HealthResult{}, err
	}

	res := s.clients.NewClient(profile(settings)).CheckBankTokenHealth(ctx, bankToken)
	result := domain.HealthResult{HealthResult: res}

	// Any unhealthy answer deactivates the bank. Failure still tells a
	// processor verdict apart from an unreachable processor.
	customerID := strings.TrimSpace(in.CustomerID)
	if res.IsHealthy || customerID == "" {
		return result, nil
	}
	log := s.logger(ctx, in.Shop)
	if err := s.banks.SetActive(ctx, in.Shop, customerID, bankToken, false); err != nil {
		log.Error("failed to deactivate unhealthy bank account",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return result, nil
	}
	log.Info("bank account deactivated after health check",
		zap.String("customer_id", customerID),
		zap.String("failure", string(res.Failure)),
		zap.String("vendor_code", res.VendorCode),
	)
	result.Deactivated = true
	return result, nil
}

func (s *Service) GetBankBalance(ctx context.Context, in domain.BankTokenInput) (fingriddomain.BalanceResult, error) {
	bankToken := strings.TrimSpace(in.BankToken)
	if bankToken == "" {
		return fingriddomain.BalanceResult{}, domain.ErrMissingBankToken
	}
	settings, err := s.loadConfigured(ctx, in.Shop)
	if err != nil {
		return fingriddomain.BalanceResult{}, err
	}
	return s.clients.NewClient(profile(settings)).GetBankTokenBalance(ctx, bankToken), nil
}

func (s *Service) Quote(ctx context.Context, in domain.QuoteInput) (domain.Quote, error) {
	if strings.TrimSpace(in.Shop) == "" {
		return domain.Quote{}, domain.ErrInvalidShop
	}
	if in.TotalAmount.IsNegative() {
		return domain.Quote{}, domain.ErrInvalidAmount
	}
	settings, err := s.settings.Get(ctx, in.Shop)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.ComputeQuote(in.TotalAmount, decimal.NewFromFloat(settings.DiscountPercentage), in.Currency), nil
}

func (s *Service) GetOrderTransaction(ctx context.Context, shop, orderID string) (transactiondomain.Record, error) {
	if strings.TrimSpace(orderID) == "" {
		return transactiondomain.Record{}, domain.ErrMissingOrderID
	}
	record, err := s.transactions.Get(ctx, shop, orderID)
	switch {
	case errors.Is(err, transactiondomain.ErrNotFound):
		return transactiondomain.Record{}, domain.ErrTransactionNotFound
	case errors.Is(err, transactiondomain.ErrInvalidShop):
		return transactiondomain.Record{}, domain.ErrInvalidShop
	case err != nil:
		return transactiondomain.Record{}, err
	}
	return record, nil
}

func (s *Service) CheckoutConfig(ctx context.Context, shop string) (domain.CheckoutConfig, error) {
	settings, err := s.settings.Get(ctx, shop)
	if err != nil {
		if errors.Is(err, settingsdomain.ErrInvalidShop) {
			return domain.CheckoutConfig{}, domain.ErrInvalidShop
		}
		return domain.CheckoutConfig{}, err
	}

	scriptURL := settings.Active().ScriptURL
	if scriptURL == "" {
		scriptURL = s.cfg.Vendor.LiveScriptURL
		if settings.TestMode {
			scriptURL = s.cfg.Vendor.SandboxScriptURL
		}
	}
	return domain.CheckoutConfig{
		TestMode:           settings.TestMode,
		ScriptURL:          scriptURL,
		ClientName:         settings.ClientName,
		ThemeColor:         settings.ThemeColor,
		ThemeLogo:          settings.ThemeLogo,
		DiscountPercentage: decimal.NewFromFloat(settings.DiscountPercentage),
		Configured:         settings.HasCredentials() && settings.HasConnectedAccount(),
	}, nil
}

// loadConfigured returns the shop's settings, or ErrCredentialsNotConfigured
// when the active mode has no client id.
func (s *Service) loadConfigured(ctx context.Context, shop string) (settingsdomain.AppSettings, error) {
	if strings.TrimSpace(shop) == "" {
		return settingsdomain.AppSettings{}, domain.ErrInvalidShop
	}
	settings, err := s.settings.Get(ctx, shop)
	if err != nil {
		return settingsdomain.AppSettings{}, err
	}
	if !settings.HasCredentials() {
		return settingsdomain.AppSettings{}, domain.ErrCredentialsNotConfigured
	}
	return settings, nil
}

func (s *Service) lockOrder(ctx context.Context, shop, orderID string) (func(), error) {
	token, ok, err := s.locker.TryLockOrder(ctx, shop, orderID)
	if err != nil {
		s.logger(ctx, shop).Warn("payment lock failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrLockUnavailable, err)
	}
	if !ok {
		return nil, domain.ErrPaymentInProgress
	}
	return func() {
		if err := s.locker.ReleaseOrder(context.WithoutCancel(ctx), shop, orderID, token); err != nil {
			s.logger(ctx, shop).Warn("payment unlock failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}, nil
}

// replay returns the order's existing charge unless it failed or was
// cancelled.
func (s *Service) replay(ctx context.Context, shop, orderID string) (domain.ChargeResult, bool) {
	record, err := s.transactions.Get(ctx, shop, orderID)
	if err != nil {
		if !errors.Is(err, transactiondomain.ErrNotFound) {
			s.logger(ctx, shop).Warn("failed to read order transaction", zap.String("order_id", orderID), zap.Error(err))
		}
		return domain.ChargeResult{}, false
	}
	switch record.Status {
	case transactiondomain.StatusFailed, transactiondomain.StatusCancelled:
		return domain.ChargeResult{}, false
	}
	return domain.ChargeResult{
		TransferResult: fingriddomain.TransferResult{
			Success:       true,
			TransactionID: record.TransactionID,
			Status:        string(record.Status),
			Message:       fingriddomain.Translate(fingriddomain.OpCharge, fingriddomain.CodeSuccess, "").Message,
			VendorCode:    record.VendorCode,
			ChargedAmount: decimal.NewNullDecimal(record.Amount),
		},
		Replayed: true,
		Amount:   record.Amount,
		Currency: record.Currency,
		Record:   &record,
	}, true
}

func (s *Service) recordPayment(ctx context.Context, txType transactiondomain.Type, res fingriddomain.TransferResult) {
	outcome := "success"
	if !res.Success {
		outcome = string(res.Failure)
		if outcome == "" {
			outcome = "failed"
		}
	}
	s.metrics.RecordPayment(ctx, string(txType), outcome)
}

func (s *Service) logger(ctx context.Context, shop string) *zap.Logger {
	log := logger.WithContext(ctx, s.log)
	if obscontext.ShopFromContext(ctx) == "" {
		log = logger.WithShop(log, shop)
	}
	return log
}

// initialStatus maps the processor's status on an accepted charge to the
// first stored status.
func initialStatus(vendorStatus string) transactiondomain.Status {
	if strings.EqualFold(strings.TrimSpace(vendorStatus), string(transactiondomain.StatusProcessing)) {
		return transactiondomain.StatusProcessing
	}
	return transactiondomain.StatusPending
}

func profile(s settingsdomain.AppSettings) fingriddomain.Profile {
	active := s.Active()
	return fingriddomain.Profile{
		TestMode:         s.TestMode,
		GatewayURL:       active.GatewayURL,
		ClientID:         active.ClientID,
		ClientSecret:     active.ClientSecret,
		ConnectedAccount: active.ConnectedAccount,
		RedirectURL:      active.RedirectURL,
		ScriptURL:        active.ScriptURL,
		ClientName:       s.ClientName,
		ThemeColor:       s.ThemeColor,
		ThemeLogo:        s.ThemeLogo,
	}
}
