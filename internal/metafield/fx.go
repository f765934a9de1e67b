package metafield

import (
	"github.com/smallbiznis/bankpay/internal/metafield/repository"
	"github.com/smallbiznis/bankpay/internal/metafield/service"
	"go.uber.org/fx"
)

var Module = fx.Module("metafield.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
