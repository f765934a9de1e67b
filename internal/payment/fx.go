package payment

import (
	"github.com/smallbiznis/bankpay/internal/payment/domain"
	"github.com/smallbiznis/bankpay/internal/payment/service"
	"github.com/smallbiznis/bankpay/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(func(l *ratelimit.Limiter) domain.OrderLocker { return l }),
	fx.Provide(service.New),
)
