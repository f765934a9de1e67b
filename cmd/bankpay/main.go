package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bankpay/internal/clock"
	"github.com/smallbiznis/bankpay/internal/config"
	"github.com/smallbiznis/bankpay/internal/migration"
	"github.com/smallbiznis/bankpay/internal/observability"
	"github.com/smallbiznis/bankpay/internal/server"
	"github.com/smallbiznis/bankpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Services and HTTP surface
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake uses NODE_ID so replicas mint distinct ids.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if v, err := strconv.ParseInt(os.Getenv("NODE_ID"), 10, 64); err == nil {
		nodeID = v
	}
	return snowflake.NewNode(nodeID)
}
