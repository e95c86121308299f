package migration

import (
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.BootstrapAdmin {
			if err := seed.EnsureAdmin(conn); err != nil {
				return err
			}
			return seed.EnsureStarterCatalog(conn)
		}
		return nil
	}),
)
