package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	paymentdomain "github.com/smallbiznis/bankpay/internal/payment/domain"
)

const (
	savedBankActionAdd         = "add"
	savedBankActionRemove      = "remove"
	savedBankActionCheckHealth = "check_health"
	savedBankActionGetBalance  = "get_balance"
)

func (s *Server) ListSavedBanks(c *gin.Context) {
	customerID := strings.TrimSpace(c.Query("customer_id"))
	if customerID == "" {
		AbortWithError(c, paymentdomain.ErrMissingCustomerID)
		return
	}

	banks, err := s.bankSvc.List(c.Request.Context(), shopFrom(c), customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"banks":   banks,
	})
}

type savedBankRequest struct {
	Action        string `json:"action"`
	CustomerID    string `json:"customer_id"`
	BankToken     string `json:"bank_token"`
	BankName      string `json:"bank_name"`
	Last4         string `json:"last4"`
	RoutingNumber string `json:"routing_number"`
	AccountType   string `json:"account_type"`
}

func (s *Server) ManageSavedBanks(c *gin.Context) {
	var req savedBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.BankToken = strings.TrimSpace(req.BankToken)
	if req.CustomerID == "" {
		AbortWithError(c, paymentdomain.ErrMissingCustomerID)
		return
	}

	switch strings.TrimSpace(req.Action) {
	case savedBankActionAdd:
		s.addSavedBank(c, req)
	case savedBankActionRemove:
		s.removeSavedBank(c, req)
	case savedBankActionCheckHealth:
		s.checkSavedBankHealth(c, req)
	case savedBankActionGetBalance:
		s.getSavedBankBalance(c, req)
	default:
		AbortWithError(c, newValidationError("action", "invalid_action",
			"Invalid action. Supported actions: add, remove, check_health, get_balance"))
	}
}

func (s *Server) addSavedBank(c *gin.Context, req savedBankRequest) {
	if req.BankToken == "" || strings.TrimSpace(req.BankName) == "" || strings.TrimSpace(req.Last4) == "" {
		AbortWithError(c, newValidationError("bank_token", "required",
			"Bank token, bank name, and last 4 digits are required"))
		return
	}

	account, err := s.bankSvc.Add(c.Request.Context(), shopFrom(c), req.CustomerID, bankaccountdomain.BankAccount{
		Token:         req.BankToken,
		BankName:      strings.TrimSpace(req.BankName),
		Last4:         strings.TrimSpace(req.Last4),
		RoutingNumber: strings.TrimSpace(req.RoutingNumber),
		AccountType:   strings.TrimSpace(req.AccountType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bank account added successfully",
		"bank":    account,
	})
}

func (s *Server) removeSavedBank(c *gin.Context, req savedBankRequest) {
	if req.BankToken == "" {
		AbortWithError(c, newValidationError("bank_token", "required", "Bank token is required for removal"))
		return
	}

	if err := s.bankSvc.Remove(c.Request.Context(), shopFrom(c), req.CustomerID, req.BankToken); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bank account removed successfully",
	})
}

func (s *Server) checkSavedBankHealth(c *gin.Context, req savedBankRequest) {
	if req.BankToken == "" {
		AbortWithError(c, newValidationError("bank_token", "required", "Bank token is required for health check"))
		return
	}

	res, err := s.paymentSvc.CheckBankHealth(c.Request.Context(), paymentdomain.BankTokenInput{
		Shop:       shopFrom(c),
		CustomerID: req.CustomerID,
		BankToken:  req.BankToken,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"is_healthy":  res.IsHealthy,
		"message":     res.Message,
		"deactivated": res.Deactivated,
	})
}

func (s *Server) getSavedBankBalance(c *gin.Context, req savedBankRequest) {
	if req.BankToken == "" {
		AbortWithError(c, newValidationError("bank_token", "required", "Bank token is required for balance check"))
		return
	}

	res, err := s.paymentSvc.GetBankBalance(c.Request.Context(), paymentdomain.BankTokenInput{
		Shop:       shopFrom(c),
		CustomerID: req.CustomerID,
		BankToken:  req.BankToken,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{
		"success":  res.Success,
		"balance":  nil,
		"currency": res.Currency,
		"message":  res.Message,
	}
	if res.Balance.Valid {
		body["balance"] = res.Balance.Decimal.StringFixed(2)
	}
	c.JSON(http.StatusOK, body)
}
