package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bankpay/internal/observability/logger"
	"github.com/smallbiznis/bankpay/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	contextClientIPKey = "client_ip"
	defaultClientIP    = "0.0.0.0"

	rateLimitReasonBucket = "bucket"
)

type requestLimiter interface {
	Allow(ctx context.Context, bucket, key string) (*ratelimit.Result, error)
}

// RateLimitError carries the wait, in whole seconds, before the bucket
// admits another request.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string { return "rate_limited" }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

func (e *RateLimitError) message() string {
	return fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", e.RetryAfter)
}

type clientIPBody struct {
	IPAddress string `json:"ip_address"`
}

// RateLimit takes one token from bucket for the caller's IP. A limiter
// failure lets the request through.
func (s *Server) RateLimit(bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := resolveClientIP(c)
		c.Set(contextClientIPKey, ip)

		if s.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.Allow(ctx, bucket, ip)
		if err != nil {
			logger.FromContext(ctx).Warn("rate limit check failed",
				zap.String("bucket", bucket),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !res.Allowed {
			s.denyRateLimit(c, bucket, res)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, bucket)
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}

func (s *Server) denyRateLimit(c *gin.Context, bucket string, res *ratelimit.Result) {
	ctx := c.Request.Context()
	retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	logger.FromContext(ctx).Warn("rate limit exceeded",
		zap.String("bucket", bucket),
		zap.String("endpoint", normalizeRateLimitEndpoint(c)),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, bucket, rateLimitReasonBucket)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", "0")
	AbortWithError(c, &RateLimitError{RetryAfter: retryAfter})
}

// resolveClientIP prefers the ip_address the checkout reports in the JSON
// body, then the first forwarded hop, then X-Real-Ip.
func resolveClientIP(c *gin.Context) string {
	if ip := readBodyIP(c); ip != "" {
		return ip
	}
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-Ip")); realIP != "" {
		return realIP
	}
	return defaultClientIP
}

func readBodyIP(c *gin.Context) string {
	if c.Request.Body == nil || !strings.Contains(c.ContentType(), "json") {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}

	var payload clientIPBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.IPAddress)
}

func clientIPFrom(c *gin.Context) string {
	if ip := c.GetString(contextClientIPKey); ip != "" {
		return ip
	}
	return resolveClientIP(c)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
