package webhookevent

import (
	"github.com/smallbiznis/bankpay/internal/webhookevent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhookevent.service",
	fx.Provide(service.New),
)
