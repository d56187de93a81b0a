package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/clock"
	"github.com/gastrack/cylinderbill/internal/config"
	"github.com/gastrack/cylinderbill/internal/logger"
	"github.com/gastrack/cylinderbill/internal/migration"
	"github.com/gastrack/cylinderbill/internal/scheduler"
	"github.com/gastrack/cylinderbill/internal/server"
	"github.com/gastrack/cylinderbill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
