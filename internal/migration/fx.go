package migration

import (
	"context"

	"github.com/ratecell/ratecell/internal/config"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, tariffsvc tariffdomain.Service) error {
		switch cfg.DBType {
		case "postgres":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		default:
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		return tariffsvc.EnsureDefault(context.Background())
	}),
)
