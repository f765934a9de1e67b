package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bankpay/internal/bankaccount"
	bankaccountdomain "github.com/smallbiznis/bankpay/internal/bankaccount/domain"
	"github.com/smallbiznis/bankpay/internal/config"
	fingridclient "github.com/smallbiznis/bankpay/internal/fingrid/client"
	"github.com/smallbiznis/bankpay/internal/metafield"
	"github.com/smallbiznis/bankpay/internal/observability"
	obsmiddleware "github.com/smallbiznis/bankpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bankpay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bankpay/internal/observability/tracing"
	"github.com/smallbiznis/bankpay/internal/payment"
	paymentdomain "github.com/smallbiznis/bankpay/internal/payment/domain"
	"github.com/smallbiznis/bankpay/internal/ratelimit"
	"github.com/smallbiznis/bankpay/internal/secret"
	"github.com/smallbiznis/bankpay/internal/settings"
	settingsdomain "github.com/smallbiznis/bankpay/internal/settings/domain"
	"github.com/smallbiznis/bankpay/internal/transaction"
	"github.com/smallbiznis/bankpay/internal/webhook"
	webhookdomain "github.com/smallbiznis/bankpay/internal/webhook/domain"
	"github.com/smallbiznis/bankpay/internal/webhookevent"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	secret.Module,
	metafield.Module,
	settings.Module,
	bankaccount.Module,
	transaction.Module,
	webhookevent.Module,
	fingridclient.Module,
	ratelimit.Module,
	payment.Module,
	webhook.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	paymentSvc  paymentdomain.Service
	bankSvc     bankaccountdomain.Service
	settingsSvc settingsdomain.Service
	webhookSvc  webhookdomain.Service
	limiter     requestLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	PaymentSvc  paymentdomain.Service
	BankSvc     bankaccountdomain.Service
	SettingsSvc settingsdomain.Service
	WebhookSvc  webhookdomain.Service
	Limiter     *ratelimit.Limiter  `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		paymentSvc:  p.PaymentSvc,
		bankSvc:     p.BankSvc,
		settingsSvc: p.SettingsSvc,
		webhookSvc:  p.WebhookSvc,
		obsMetrics:  p.ObsMetrics,
	}
	if p.Limiter != nil {
		svc.limiter = p.Limiter
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/fingrid", s.SessionRequired())

	// -------- Bank link --------
	api.POST("/generate-link-token", s.RateLimit(config.BucketLinkToken), s.GenerateLinkToken)
	api.POST("/exchange-token", s.RateLimit(config.BucketTokenExchange), s.ExchangeToken)

	// -------- Payments --------
	api.POST("/process-payment", s.RateLimit(config.BucketPayment), s.ProcessPayment)
	api.POST("/refund", s.RateLimit(config.BucketPayment), s.RefundPayment)
	api.POST("/quote", s.RateLimit(config.BucketAPI), s.Quote)
	api.GET("/order-transaction", s.RateLimit(config.BucketAPI), s.GetOrderTransaction)
	api.GET("/checkout-config", s.RateLimit(config.BucketAPI), s.GetCheckoutConfig)

	// -------- Saved banks --------
	api.GET("/saved-banks", s.RateLimit(config.BucketAPI), s.ListSavedBanks)
	api.POST("/saved-banks", s.RateLimit(config.BucketAPI), s.ManageSavedBanks)

	// -------- Settings --------
	api.GET("/settings", s.RateLimit(config.BucketAPI), s.GetSettings)
	api.PUT("/settings", s.RateLimit(config.BucketAPI), s.UpdateSettings)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks", s.RateLimit(config.BucketWebhook))

	hooks.POST("/shopify/*topic", s.HandleShopifyWebhook)
	hooks.POST("/fingrid", s.HandleFingridWebhook)
}
