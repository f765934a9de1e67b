package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bankpay/internal/config"
	"github.com/smallbiznis/bankpay/internal/fingrid/domain"
	"github.com/smallbiznis/bankpay/internal/observability/metrics"
	"github.com/smallbiznis/bankpay/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	pathLinkToken = "/link/token/create"
	pathExchange  = "/link/public_token/exchange"
	pathTransfer  = "/transaction/move_cabbage"
	pathHealth    = "/health/token/bank_token"
	pathBalance   = "/bank_token/balance"

	defaultClientName          = "Shopify Store"
	defaultStatementDescriptor = "Shopify Order"
	defaultIPAddress           = "0.0.0.0"

	// Processor-side limit on the free-form metadata field.
	maxMetadataLen = 255
	maxBodyBytes   = 1 << 20
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Factory builds per-shop clients that share one HTTP transport.
type Factory struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	http    *http.Client
}

func NewFactory(p Params) domain.ClientFactory {
	return &Factory{
		cfg:     p.Cfg,
		log:     p.Log.Named("fingrid.client"),
		metrics: p.Metrics,
		http:    &http.Client{Timeout: p.Cfg.Vendor.Timeout},
	}
}

func (f *Factory) NewClient(profile domain.Profile) domain.Client {
	return &Client{
		profile:         profile,
		baseURL:         f.baseURL(profile),
		defaultRedirect: f.cfg.DefaultRedirectURL(),
		userAgent:       "bankpay/" + f.cfg.AppVersion,
		http:            f.http,
		log:             f.log.With(zap.Bool("test_mode", profile.TestMode)),
		metrics:         f.metrics,
	}
}

func (f *Factory) baseURL(profile domain.Profile) string {
	base := strings.TrimSpace(profile.GatewayURL)
	if base == "" {
		if profile.TestMode {
			base = f.cfg.Vendor.SandboxGatewayURL
		} else {
			base = f.cfg.Vendor.LiveGatewayURL
		}
	}
	if base == "" {
		base = config.DefaultSandboxGatewayURL
		if !profile.TestMode {
			base = config.DefaultLiveGatewayURL
		}
	}
	return strings.TrimRight(base, "/")
}

type Client struct {
	profile         domain.Profile
	baseURL         string
	defaultRedirect string
	userAgent       string
	http            *http.Client
	log             *zap.Logger
	metrics         *metrics.Metrics
}

// BaseURL is the resolved endpoint root for the active mode.
func (c *Client) BaseURL() string { return c.baseURL }

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

func (c *Client) credentials() credentials {
	return credentials{ClientID: c.profile.ClientID, Secret: c.profile.ClientSecret}
}

type linkTokenPayload struct {
	credentials
	ClientName      string `json:"client_name"`
	RedirectURI     string `json:"redirect_uri"`
	CustEmail       string `json:"cust_email,omitempty"`
	CustPhoneNumber string `json:"cust_phone_number,omitempty"`
	CustFirstName   string `json:"cust_first_name,omitempty"`
	CustLastName    string `json:"cust_last_name,omitempty"`
	ThemeColor      string `json:"theme_color,omitempty"`
	ThemeLogo       string `json:"theme_logo,omitempty"`
}

func (c *Client) GenerateLinkToken(ctx context.Context, req domain.LinkTokenRequest) (domain.LinkToken, error) {
	payload := linkTokenPayload{
		credentials:     c.credentials(),
		ClientName:      firstNonEmpty(c.profile.ClientName, defaultClientName),
		RedirectURI:     firstNonEmpty(req.ReturnURL, c.profile.RedirectURL, c.defaultRedirect),
		CustEmail:       strings.TrimSpace(req.Customer.Email),
		CustPhoneNumber: strings.TrimSpace(req.Customer.Phone),
		CustFirstName:   strings.TrimSpace(req.Customer.FirstName),
		CustLastName:    strings.TrimSpace(req.Customer.LastName),
		ThemeColor:      strings.TrimPrefix(strings.TrimSpace(c.profile.ThemeColor), "#"),
		ThemeLogo:       strings.TrimSpace(c.profile.ThemeLogo),
	}

	env, err := c.call(ctx, domain.OpLinkToken, pathLinkToken, payload)
	if err != nil {
		return domain.LinkToken{}, err
	}
	token := env.str("link_token")
	if !env.acknowledged() || token == "" {
		return domain.LinkToken{}, vendorError(domain.OpLinkToken, env)
	}
	return domain.LinkToken{
		LinkToken: token,
		Expiry:    env.str("expiry"),
		RequestID: env.str("request_id"),
	}, nil
}

type exchangePayload struct {
	credentials
	PublicToken string `json:"public_token"`
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (domain.BankLink, error) {
	env, err := c.call(ctx, domain.OpExchange, pathExchange, exchangePayload{
		credentials: c.credentials(),
		PublicToken: strings.TrimSpace(publicToken),
	})
	if err != nil {
		return domain.BankLink{}, err
	}
	bankToken := env.str("bank_token")
	if !env.acknowledged() || bankToken == "" {
		return domain.BankLink{}, vendorError(domain.OpExchange, env)
	}
	return domain.BankLink{
		BankToken: bankToken,
		BankName:  env.str("bank_name"),
		Last4:     env.str("bank_account_last_four"),
		RequestID: env.str("request_id"),
	}, nil
}

type transferPayload struct {
	credentials
	BankToken            string      `json:"bank_token"`
	ConnectedAcct        string      `json:"connected_acct"`
	TransactionType      string      `json:"transaction_type"`
	BillingType          string      `json:"billing_type"`
	Speed                string      `json:"speed,omitempty"`
	FinalAmount          json.Number `json:"final_amount"`
	ApplicationFeeAmount json.Number `json:"application_fee_amount"`
	StatementDescriptor  string      `json:"statement_descriptor,omitempty"`
	Metadata             string      `json:"metadata"`
	IPAddress            string      `json:"ip_address"`
}

func (c *Client) ProcessPayment(ctx context.Context, req domain.ChargeRequest) domain.TransferResult {
	return c.transfer(ctx, domain.OpCharge, transferPayload{
		credentials:          c.credentials(),
		BankToken:            req.BankToken,
		ConnectedAcct:        c.profile.ConnectedAccount,
		TransactionType:      "charge",
		BillingType:          "single",
		Speed:                "next_day",
		FinalAmount:          amountNumber(req.Amount),
		ApplicationFeeAmount: json.Number("0"),
		StatementDescriptor:  firstNonEmpty(req.StatementDescriptor, defaultStatementDescriptor),
		Metadata:             truncate(req.Metadata, maxMetadataLen),
		IPAddress:            firstNonEmpty(req.IPAddress, defaultIPAddress),
	})
}

// RefundPayment sends money back to the customer's bank. The processor has no
// reversal endpoint; a refund is a "send" on the transfer endpoint.
func (c *Client) RefundPayment(ctx context.Context, req domain.RefundRequest) domain.TransferResult {
	metadata := fmt.Sprintf("Refund-OrderId#%s-Original#%s", req.OrderID, req.OriginalTransactionID)
	return c.transfer(ctx, domain.OpRefund, transferPayload{
		credentials:          c.credentials(),
		BankToken:            req.BankToken,
		ConnectedAcct:        c.profile.ConnectedAccount,
		TransactionType:      "send",
		BillingType:          "single",
		FinalAmount:          amountNumber(req.Amount),
		ApplicationFeeAmount: json.Number("0"),
		Metadata:             truncate(metadata, maxMetadataLen),
		IPAddress:            defaultIPAddress,
	})
}

func (c *Client) transfer(ctx context.Context, op domain.Operation, payload transferPayload) domain.TransferResult {
	env, err := c.call(ctx, op, pathTransfer, payload)
	if err != nil {
		return networkResult(err)
	}

	if !env.succeeded() {
		t := domain.Translate(op, env.code(), env.message())
		return domain.TransferResult{
			Success:    false,
			Message:    t.Message,
			VendorCode: env.code(),
			Failure:    domain.FailureVendor,
		}
	}

	result := domain.TransferResult{
		Success:       true,
		TransactionID: env.str("transaction_id"),
		Status:        env.str("status"),
		Message:       domain.Translate(op, domain.CodeSuccess, "").Message,
		VendorCode:    domain.CodeSuccess,
	}
	if charged, ok := env.decimal("final_charged_amount"); ok {
		result.ChargedAmount = decimal.NewNullDecimal(charged)
	}
	return result
}

type bankTokenPayload struct {
	credentials
	BankToken string `json:"bank_token"`
}

func (c *Client) CheckBankTokenHealth(ctx context.Context, bankToken string) domain.HealthResult {
	env, err := c.call(ctx, domain.OpHealth, pathHealth, bankTokenPayload{credentials: c.credentials(), BankToken: bankToken})
	if err != nil {
		var netErr *domain.NetworkError
		errors.As(err, &netErr)
		return domain.HealthResult{IsHealthy: false, Message: netErr.UserMessage(), Failure: netErr.FailureKind()}
	}
	if env.succeeded() {
		return domain.HealthResult{
			IsHealthy:  true,
			Message:    domain.Translate(domain.OpHealth, domain.CodeSuccess, "").Message,
			VendorCode: domain.CodeSuccess,
		}
	}
	return domain.HealthResult{
		IsHealthy:  false,
		Message:    domain.Translate(domain.OpHealth, env.code(), env.message()).Message,
		VendorCode: env.code(),
		Failure:    domain.FailureVendor,
	}
}

func (c *Client) GetBankTokenBalance(ctx context.Context, bankToken string) domain.BalanceResult {
	env, err := c.call(ctx, domain.OpBalance, pathBalance, bankTokenPayload{credentials: c.credentials(), BankToken: bankToken})
	if err != nil {
		var netErr *domain.NetworkError
		errors.As(err, &netErr)
		return domain.BalanceResult{Success: false, Message: netErr.UserMessage(), Failure: netErr.FailureKind()}
	}
	if !env.succeeded() {
		return domain.BalanceResult{
			Success:    false,
			Message:    domain.Translate(domain.OpBalance, env.code(), env.message()).Message,
			VendorCode: env.code(),
			Failure:    domain.FailureVendor,
		}
	}

	balance, ok := env.decimal("available_balance")
	if !ok {
		netErr := &domain.NetworkError{Operation: domain.OpBalance, Err: domain.ErrMalformedResponse}
		c.log.Warn("balance response missing available_balance")
		return domain.BalanceResult{Success: false, Message: netErr.UserMessage(), Failure: domain.FailureNetwork}
	}
	return domain.BalanceResult{
		Success:    true,
		Balance:    decimal.NewNullDecimal(balance),
		Currency:   env.str("currency"),
		Message:    domain.Translate(domain.OpBalance, domain.CodeSuccess, "").Message,
		VendorCode: domain.CodeSuccess,
	}
}

// call posts payload and decodes the processor envelope. Any returned error
// is a *domain.NetworkError; processor rejections come back as an envelope.
func (c *Client) call(ctx context.Context, op domain.Operation, path string, payload any) (envelope, error) {
	ctx, span := otel.Tracer("bankpay/fingrid").Start(ctx, "fingrid."+string(op), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	env, err := c.roundTrip(ctx, op, path, payload)
	elapsed := time.Since(start)

	outcome, code := "success", ""
	switch {
	case err != nil:
		outcome = "network_error"
		var netErr *domain.NetworkError
		if errors.As(err, &netErr) && netErr.Timeout {
			outcome = "timeout"
		}
		c.log.Warn("fingrid call failed",
			zap.String("operation", string(op)),
			zap.String("outcome", outcome),
			zap.Duration("latency", elapsed),
			zap.Error(err),
		)
	default:
		code = env.code()
		if !accepted(op, env) {
			outcome = "vendor_error"
		}
		c.log.Info("fingrid call",
			zap.String("operation", string(op)),
			zap.String("outcome", outcome),
			zap.String("vendor_code", code),
			zap.Duration("latency", elapsed),
		)
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("vendor.operation", string(op)),
		attribute.String("vendor.code", code),
	)...)
	if outcome != "success" {
		span.SetStatus(codes.Error, outcome)
	}
	c.metrics.RecordVendorCall(ctx, string(op), outcome, code, elapsed)
	return env, err
}

func (c *Client) roundTrip(ctx context.Context, op domain.Operation, path string, payload any) (envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.NetworkError{Operation: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.NetworkError{Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Operation: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.NetworkError{Operation: op, Timeout: isTimeout(err), Err: err}
	}

	env, ok := decodeEnvelope(raw)
	if !ok {
		return nil, &domain.NetworkError{
			Operation: op,
			Err:       fmt.Errorf("%w: http %d", domain.ErrMalformedResponse, resp.StatusCode),
		}
	}
	return env, nil
}

func accepted(op domain.Operation, env envelope) bool {
	if op == domain.OpLinkToken || op == domain.OpExchange {
		return env.acknowledged()
	}
	return env.succeeded()
}

func vendorError(op domain.Operation, env envelope) *domain.VendorError {
	code := env.code()
	if code == "" || code == domain.CodeSuccess {
		code = domain.CodeUnknown
	}
	return &domain.VendorError{Operation: op, Code: code, Message: env.message()}
}

func networkResult(err error) domain.TransferResult {
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		netErr = &domain.NetworkError{Operation: domain.OpCharge, Err: err}
	}
	return domain.TransferResult{
		Success: false,
		Message: netErr.UserMessage(),
		Failure: netErr.FailureKind(),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// amountNumber keeps every decimal place the caller rounded to, with at
// least two.
func amountNumber(amount decimal.Decimal) json.Number {
	places := -amount.Exponent()
	if places < 2 {
		places = 2
	}
	return json.Number(amount.StringFixed(places))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
