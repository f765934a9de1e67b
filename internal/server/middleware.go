package server

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	obscontext "github.com/smallbiznis/bankpay/internal/observability/context"
	"github.com/smallbiznis/bankpay/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	contextShopKey = "shop"
	sessionLeeway  = 5 * time.Second
)

// sessionClaims is the subset of a Shopify session token we rely on.
type sessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// SessionRequired verifies the Shopify session token in the Authorization
// header and scopes the request to the shop named by its dest claim.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		shop, err := s.verifySession(raw)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("session token rejected", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextShopKey, shop)
		c.Request = c.Request.WithContext(obscontext.WithShop(c.Request.Context(), shop))
		c.Next()
	}
}

func (s *Server) verifySession(raw string) (string, error) {
	secret := strings.TrimSpace(s.cfg.Shopify.APISecret)
	if secret == "" {
		return "", ErrUnauthorized
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(sessionLeeway),
		jwt.WithExpirationRequired(),
	}
	if key := strings.TrimSpace(s.cfg.Shopify.APIKey); key != "" {
		opts = append(opts, jwt.WithAudience(key))
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return "", err
	}

	shop := shopFromDest(claims.Dest)
	if shop == "" {
		return "", ErrUnauthorized
	}
	return shop, nil
}

func shopFromDest(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return ""
	}
	if !strings.Contains(dest, "://") {
		dest = "https://" + dest
	}
	u, err := url.Parse(dest)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func shopFrom(c *gin.Context) string {
	return c.GetString(contextShopKey)
}
