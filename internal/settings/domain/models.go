package domain

import "strings"

// AppSettings is the merchant configuration for one shop. Field names match
// the stored JSON document so existing installs decode unchanged.
type AppSettings struct {
	TestMode bool `json:"testMode"`

	TestGatewayURL       string `json:"testGatewayUrl" validate:"omitempty,url"`
	TestClientID         string `json:"testClientId" validate:"max=255"`
	TestClientSecret     string `json:"testClientSecret"`
	TestConnectedAccount string `json:"testConnectedAccount" validate:"max=255"`
	TestScriptURL        string `json:"testScriptUrl" validate:"omitempty,url"`
	TestRedirectURL      string `json:"testRedirectUrl" validate:"omitempty,url"`

	LiveGatewayURL       string `json:"liveGatewayUrl" validate:"omitempty,url"`
	LiveClientID         string `json:"liveClientId" validate:"max=255"`
	LiveClientSecret     string `json:"liveClientSecret"`
	LiveConnectedAccount string `json:"liveConnectedAccount" validate:"max=255"`
	LiveScriptURL        string `json:"liveScriptUrl" validate:"omitempty,url"`
	LiveRedirectURL      string `json:"liveRedirectUrl" validate:"omitempty,url"`

	ClientName         string  `json:"clientName" validate:"max=100"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"gte=0,lte=100"`
	ThemeColor         string  `json:"themeColor" validate:"omitempty,themecolor"`
	ThemeLogo          string  `json:"themeLogo" validate:"omitempty,url"`

	PostTransactionStatus string `json:"postTransactionStatus" validate:"max=64"`
	WebhookSuccessStatus  string `json:"webhookSuccessStatus" validate:"max=64"`
	WebhookFailedStatus   string `json:"webhookFailedStatus" validate:"max=64"`
}

// CredentialBundle is one mode's processor account.
type CredentialBundle struct {
	GatewayURL       string
	ClientID         string
	ClientSecret     string
	ConnectedAccount string
	ScriptURL        string
	RedirectURL      string
}

type StatusMapping struct {
	PostTransaction string `json:"postTransaction"`
	WebhookSuccess  string `json:"webhookSuccess"`
	WebhookFailed   string `json:"webhookFailed"`
}

const (
	DefaultClientName   = "Payment Gateway"
	DefaultThemeColor   = "#1a73e8"
	DefaultPostStatus   = "pending"
	DefaultSuccessState = "paid"
	DefaultFailedState  = "cancelled"

	// SecretMask replaces stored secrets in read responses. Saving it back
	// keeps the stored value.
	SecretMask = "********"
)

// Defaults never carry credentials; merchants must configure their own.
func Defaults() AppSettings {
	return AppSettings{
		TestMode:              true,
		DiscountPercentage:    0,
		ClientName:            DefaultClientName,
		ThemeColor:            DefaultThemeColor,
		PostTransactionStatus: DefaultPostStatus,
		WebhookSuccessStatus:  DefaultSuccessState,
		WebhookFailedStatus:   DefaultFailedState,
	}
}

func (s AppSettings) Sandbox() CredentialBundle {
	return CredentialBundle{
		GatewayURL:       s.TestGatewayURL,
		ClientID:         s.TestClientID,
		ClientSecret:     s.TestClientSecret,
		ConnectedAccount: s.TestConnectedAccount,
		ScriptURL:        s.TestScriptURL,
		RedirectURL:      s.TestRedirectURL,
	}
}

func (s AppSettings) Live() CredentialBundle {
	return CredentialBundle{
		GatewayURL:       s.LiveGatewayURL,
		ClientID:         s.LiveClientID,
		ClientSecret:     s.LiveClientSecret,
		ConnectedAccount: s.LiveConnectedAccount,
		ScriptURL:        s.LiveScriptURL,
		RedirectURL:      s.LiveRedirectURL,
	}
}

// Active selects the bundle for the current mode.
func (s AppSettings) Active() CredentialBundle {
	if s.TestMode {
		return s.Sandbox()
	}
	return s.Live()
}

func (s AppSettings) HasCredentials() bool {
	return strings.TrimSpace(s.Active().ClientID) != ""
}

func (s AppSettings) HasConnectedAccount() bool {
	return strings.TrimSpace(s.Active().ConnectedAccount) != ""
}

func (s AppSettings) StatusMapping() StatusMapping {
	return StatusMapping{
		PostTransaction: s.PostTransactionStatus,
		WebhookSuccess:  s.WebhookSuccessStatus,
		WebhookFailed:   s.WebhookFailedStatus,
	}
}

// Redacted masks both client secrets for display.
func (s AppSettings) Redacted() AppSettings {
	if s.TestClientSecret != "" {
		s.TestClientSecret = SecretMask
	}
	if s.LiveClientSecret != "" {
		s.LiveClientSecret = SecretMask
	}
	return s
}

// WithDefaults fills blank display fields that an older document may lack.
func (s AppSettings) WithDefaults() AppSettings {
	d := Defaults()
	if strings.TrimSpace(s.ClientName) == "" {
		s.ClientName = d.ClientName
	}
	if strings.TrimSpace(s.ThemeColor) == "" {
		s.ThemeColor = d.ThemeColor
	}
	if strings.TrimSpace(s.PostTransactionStatus) == "" {
		s.PostTransactionStatus = d.PostTransactionStatus
	}
	if strings.TrimSpace(s.WebhookSuccessStatus) == "" {
		s.WebhookSuccessStatus = d.WebhookSuccessStatus
	}
	if strings.TrimSpace(s.WebhookFailedStatus) == "" {
		s.WebhookFailedStatus = d.WebhookFailedStatus
	}
	return s
}
