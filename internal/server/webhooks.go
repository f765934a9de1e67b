package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/bankpay/internal/webhook/domain"
)

const maxWebhookBody = 1 << 20

func (s *Server) HandleShopifyWebhook(c *gin.Context) {
	payload, err := readWebhookBody(c)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.webhookSvc.IngestShopify(c.Request.Context(), c.Param("topic"), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, webhookdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "duplicate": res.Duplicate})
}

func (s *Server) HandleFingridWebhook(c *gin.Context) {
	payload, err := readWebhookBody(c)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.webhookSvc.IngestFingrid(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "duplicate": res.Duplicate})
}

func readWebhookBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
}
