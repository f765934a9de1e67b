package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/bankpay/internal/settings/domain"
)

// GetSettings returns the shop's settings with secrets masked.
func (s *Server) GetSettings(c *gin.Context) {
	current, err := s.settingsSvc.Get(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settings": current.Redacted(),
	})
}

// UpdateSettings replaces the shop's settings. A secret sent back as the
// mask keeps its stored value.
func (s *Server) UpdateSettings(c *gin.Context) {
	var req settingsdomain.AppSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	saved, err := s.settingsSvc.Save(c.Request.Context(), shopFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Settings saved successfully",
		"settings": saved.Redacted(),
	})
}
