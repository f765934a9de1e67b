package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	fingriddomain "github.com/smallbiznis/bankpay/internal/fingrid/domain"
	paymentdomain "github.com/smallbiznis/bankpay/internal/payment/domain"
)

type generateLinkTokenRequest struct {
	CustomerID        string `json:"customer_id"`
	CustomerEmail     string `json:"customer_email"`
	CustomerPhone     string `json:"customer_phone"`
	CustomerFirstName string `json:"customer_first_name"`
	CustomerLastName  string `json:"customer_last_name"`
	ReturnURL         string `json:"return_url"`
}

func (s *Server) GenerateLinkToken(c *gin.Context) {
	var req generateLinkTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	token, err := s.paymentSvc.GenerateLinkToken(c.Request.Context(), paymentdomain.LinkTokenInput{
		Shop: shopFrom(c),
		Customer: fingriddomain.Customer{
			ID:        strings.TrimSpace(req.CustomerID),
			Email:     strings.TrimSpace(req.CustomerEmail),
			Phone:     strings.TrimSpace(req.CustomerPhone),
			FirstName: strings.TrimSpace(req.CustomerFirstName),
			LastName:  strings.TrimSpace(req.CustomerLastName),
		},
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"link_token": token.LinkToken,
		"expiry":     token.Expiry,
	})
}

type exchangeTokenRequest struct {
	PublicToken string `json:"public_token"`
	CustomerID  string `json:"customer_id"`
}

func (s *Server) ExchangeToken(c *gin.Context) {
	var req exchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.paymentSvc.ExchangePublicToken(c.Request.Context(), paymentdomain.ExchangeInput{
		Shop:        shopFrom(c),
		PublicToken: req.PublicToken,
		CustomerID:  strings.TrimSpace(req.CustomerID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"bank_token":             res.BankToken,
		"bank_name":              res.BankName,
		"bank_account_last_four": res.Last4,
		"request_id":             res.RequestID,
		"saved":                  res.Saved,
	})
}

type processPaymentRequest struct {
	BankToken           string              `json:"bank_token"`
	Amount              decimal.NullDecimal `json:"amount"`
	Currency            string              `json:"currency"`
	CustomerID          string              `json:"customer_id"`
	StatementDescriptor string              `json:"statement_descriptor"`
	Metadata            string              `json:"metadata"`
	IPAddress           string              `json:"ip_address"`
	OrderID             string              `json:"order_id"`
	ApplyDiscount       bool                `json:"apply_discount"`
}

func (s *Server) ProcessPayment(c *gin.Context) {
	var req processPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.BankToken) == "" || !req.Amount.Valid {
		AbortWithError(c, paymentdomain.ErrAmountRequired)
		return
	}

	res, err := s.paymentSvc.ProcessPayment(c.Request.Context(), paymentdomain.ChargeInput{
		Shop:                shopFrom(c),
		OrderID:             req.OrderID,
		BankToken:           req.BankToken,
		Amount:              req.Amount.Decimal,
		Currency:            req.Currency,
		CustomerID:          strings.TrimSpace(req.CustomerID),
		StatementDescriptor: req.StatementDescriptor,
		Metadata:            req.Metadata,
		IPAddress:           clientIPFrom(c),
		ApplyDiscount:       req.ApplyDiscount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !res.Success {
		writeTransferFailure(c, res.TransferResult)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"transaction_id":      res.TransactionID,
		"status":              res.Status,
		"message":             res.Message,
		"cabbage_return_code": res.VendorCode,
		"amount":              res.Amount.StringFixed(paymentdomain.MinorUnits(res.Currency)),
		"currency":            res.Currency,
		"replayed":            res.Replayed,
	})
}

type refundRequest struct {
	OrderID string              `json:"order_id"`
	Amount  decimal.NullDecimal `json:"amount"`
}

func (s *Server) RefundPayment(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.paymentSvc.RefundPayment(c.Request.Context(), paymentdomain.RefundInput{
		Shop:    shopFrom(c),
		OrderID: req.OrderID,
		Amount:  req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if !res.Success {
		writeTransferFailure(c, res.TransferResult)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"refund_id":           res.TransactionID,
		"status":              res.Status,
		"message":             res.Message,
		"cabbage_return_code": res.VendorCode,
		"transaction":         res.Record,
	})
}

// writeTransferFailure answers a charge or refund the processor did not
// complete. Declines are 400; unreachable processors are 502.
func writeTransferFailure(c *gin.Context, res fingriddomain.TransferResult) {
	status := http.StatusBadRequest
	errType := "vendor_error"
	switch res.Failure {
	case fingriddomain.FailureNetwork:
		status, errType = http.StatusBadGateway, "network_error"
	case fingriddomain.FailureTimeout:
		status, errType = http.StatusBadGateway, "vendor_timeout"
	}

	c.JSON(status, gin.H{
		"success":             false,
		"error":               res.Message,
		"type":                errType,
		"cabbage_return_code": res.VendorCode,
	})
}

type quoteRequest struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

func (s *Server) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	quote, err := s.paymentSvc.Quote(c.Request.Context(), paymentdomain.QuoteInput{
		Shop:        shopFrom(c),
		TotalAmount: req.TotalAmount,
		Currency:    req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"currency":            quote.Currency,
		"total_amount":        quote.TotalAmount.StringFixed(quote.Places),
		"discount_percentage": quote.DiscountPercentage.String(),
		"discount_amount":     quote.DiscountAmount.StringFixed(quote.Places),
		"final_amount":        quote.FinalAmount.StringFixed(quote.Places),
	})
}

func (s *Server) GetOrderTransaction(c *gin.Context) {
	record, err := s.paymentSvc.GetOrderTransaction(c.Request.Context(), shopFrom(c), c.Query("order_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"transaction": record,
	})
}

func (s *Server) GetCheckoutConfig(c *gin.Context) {
	cfg, err := s.paymentSvc.CheckoutConfig(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config":  cfg,
	})
}
