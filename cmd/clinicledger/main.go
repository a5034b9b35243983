package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clinicledger/internal/clock"
	"github.com/smallbiznis/clinicledger/internal/config"
	"github.com/smallbiznis/clinicledger/internal/migration"
	"github.com/smallbiznis/clinicledger/internal/observability"
	"github.com/smallbiznis/clinicledger/internal/server"
	"github.com/smallbiznis/clinicledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Cash registers, receivables, admissions and the HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
