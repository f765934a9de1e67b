package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	fingriddomain "github.com/smallbiznis/bankpay/internal/fingrid/domain"
	paymentdomain "github.com/smallbiznis/bankpay/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/bankpay/internal/settings/domain"
	transactiondomain "github.com/smallbiznis/bankpay/internal/transaction/domain"
	webhookdomain "github.com/smallbiznis/bankpay/internal/webhook/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Message string
	Errors  []ValidationError
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

// errorResponse is the failure body of every JSON endpoint. error is the
// message shown to merchants and customers.
type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Type    string            `json:"type"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("rate_limited")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "Invalid request body")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Message: message,
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{
			Type:  "internal_error",
			Error: "Internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorResponse{
			Type:   "validation_error",
			Code:   firstCode(vErr.Errors),
			Error:  vErr.Message,
			Errors: vErr.Errors,
		}
	}

	var settingsErr *settingsdomain.ValidationError
	if errors.As(err, &settingsErr) && settingsErr != nil {
		fields := make([]ValidationError, 0, len(settingsErr.Fields))
		for _, f := range settingsErr.Fields {
			fields = append(fields, ValidationError{Field: f.Field, Code: f.Code, Message: f.Message})
		}
		return http.StatusBadRequest, errorResponse{
			Type:   "validation_error",
			Code:   "invalid_settings",
			Error:  "Invalid settings",
			Errors: fields,
		}
	}

	var payErr *paymentdomain.Error
	if errors.As(err, &payErr) && payErr != nil {
		return paymentStatus(payErr.Class()), errorResponse{
			Type:  payErr.Kind(),
			Code:  payErr.Code(),
			Error: payErr.UserMessage(),
		}
	}

	var vendorErr *fingriddomain.VendorError
	if errors.As(err, &vendorErr) && vendorErr != nil {
		return http.StatusBadRequest, errorResponse{
			Type:  vendorErr.Kind(),
			Code:  vendorErr.Code,
			Error: vendorErr.UserMessage(),
		}
	}

	var netErr *fingriddomain.NetworkError
	if errors.As(err, &netErr) && netErr != nil {
		return http.StatusBadGateway, errorResponse{
			Type:  netErr.Kind(),
			Error: netErr.UserMessage(),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, webhookdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorResponse{
			Type:  "unauthorized",
			Error: "Unauthorized",
		}
	case errors.Is(err, ErrRateLimited):
		message := "Too many requests. Please try again later."
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) && rlErr != nil {
			message = rlErr.message()
		}
		return http.StatusTooManyRequests, errorResponse{
			Type:  "rate_limited",
			Error: message,
		}
	case errors.Is(err, bankaccountdomain.ErrInvalidCustomer):
		return http.StatusBadRequest, errorResponse{
			Type:  "validation_error",
			Code:  "customer_id_required",
			Error: "Customer ID is required",
		}
	case errors.Is(err, bankaccountdomain.ErrInvalidToken):
		return http.StatusBadRequest, errorResponse{
			Type:  "validation_error",
			Code:  "bank_token_required",
			Error: "Bank token is required",
		}
	case errors.Is(err, transactiondomain.ErrInvalidOrder):
		return http.StatusBadRequest, errorResponse{
			Type:  "validation_error",
			Code:  "order_id_required",
			Error: "Order ID is required",
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, webhookdomain.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrMissingShop):
		return http.StatusBadRequest, errorResponse{
			Type:  "validation_error",
			Code:  err.Error(),
			Error: "Invalid request",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, transactiondomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{
			Type:  "not_found",
			Error: "Not found",
		}
	case errors.Is(err, transactiondomain.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{
			Type:  "conflict",
			Code:  "invalid_transition",
			Error: "Transaction status cannot change",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, webhookdomain.ErrSecretNotConfigured):
		return http.StatusServiceUnavailable, errorResponse{
			Type:  "service_unavailable",
			Error: "Service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorResponse{
			Type:  "internal_error",
			Error: "Internal server error",
		}
	}
}

func paymentStatus(kind paymentdomain.Kind) int {
	switch kind {
	case paymentdomain.KindConflict:
		return http.StatusConflict
	case paymentdomain.KindNotFound:
		return http.StatusNotFound
	case paymentdomain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func firstCode(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Code
}

// classifyErrorForLog feeds the request logger the same type and code the
// client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}
