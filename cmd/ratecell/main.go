package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/ratecell/ratecell/internal/clock"
	"github.com/ratecell/ratecell/internal/config"
	"github.com/ratecell/ratecell/internal/metrics"
	"github.com/ratecell/ratecell/internal/migration"
	"github.com/ratecell/ratecell/internal/rating"
	"github.com/ratecell/ratecell/internal/server"
	"github.com/ratecell/ratecell/internal/subscriber"
	"github.com/ratecell/ratecell/internal/tariff"
	"github.com/ratecell/ratecell/internal/usage"
	"github.com/ratecell/ratecell/pkg/db"
	"github.com/ratecell/ratecell/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,

		// Functional domains
		tariff.Module,
		subscriber.Module,
		rating.Module,
		usage.Module,

		migration.Module,
		server.Module,
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
