package bankaccount

import (
	"github.com/smallbiznis/bankpay/internal/bankaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bankaccount.service",
	fx.Provide(service.New),
)
