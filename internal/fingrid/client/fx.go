package client

import "go.uber.org/fx"

var Module = fx.Module("fingrid.client",
	fx.Provide(NewFactory),
)
