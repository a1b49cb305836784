package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallgrid/voltera/internal/audit"
	"github.com/smallgrid/voltera/internal/auth"
	"github.com/smallgrid/voltera/internal/billing"
	"github.com/smallgrid/voltera/internal/client"
	"github.com/smallgrid/voltera/internal/clock"
	"github.com/smallgrid/voltera/internal/config"
	"github.com/smallgrid/voltera/internal/migration"
	"github.com/smallgrid/voltera/internal/observability"
	"github.com/smallgrid/voltera/internal/observability/logger"
	"github.com/smallgrid/voltera/internal/pricing"
	"github.com/smallgrid/voltera/internal/seed"
	"github.com/smallgrid/voltera/internal/server"
	"github.com/smallgrid/voltera/internal/tariff"
	"github.com/smallgrid/voltera/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.Bootstrap.SeedDefaults {
				return seed.EnsureDefaults(conn)
			}
			return nil
		}),
		pricing.Module,
		auth.Module,
		audit.Module,
		tariff.Module,
		client.Module,
		billing.Module,
		server.Module,
	)
	app.Run()
}
