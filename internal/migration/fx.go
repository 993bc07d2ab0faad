package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendorbill/internal/config"
	"github.com/smallbiznis/vendorbill/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		log = log.Named("migrations")

		if cfg.Bootstrap.RunMigrations {
			if cfg.DBType != "postgres" {
				log.Warn("schema migrations ship for postgres only, skipping", zap.String("db_type", cfg.DBType))
			} else {
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				if err := RunMigrations(sqlDB); err != nil {
					return err
				}
				log.Info("schema migrations applied")
			}
		}

		if cfg.Bootstrap.SeedTaxCatalog {
			inserted, err := seed.EnsureDefaultCatalog(context.Background(), conn, node)
			if err != nil {
				return err
			}
			log.Info("default tax catalog ensured", zap.Int("inserted", inserted))
		}
		return nil
	}),
)
