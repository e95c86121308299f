package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/medisys/clinicore/internal/audit/domain"
	billingdomain "github.com/medisys/clinicore/internal/billing/domain"
	catalogdomain "github.com/medisys/clinicore/internal/catalog/domain"
	laborderdomain "github.com/medisys/clinicore/internal/laborder/domain"
	notifydomain "github.com/medisys/clinicore/internal/notification/domain"
	reportdomain "github.com/medisys/clinicore/internal/report/domain"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations. Postgres only; other
// dialects go through AutoMigrate.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not close the migrator; it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema from the models for sqlite and mysql
// deployments where the embedded postgres DDL does not apply.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&userdomain.User{},
		&catalogdomain.CatalogTest{},
		&laborderdomain.LabOrder{},
		&laborderdomain.LabOrderTest{},
		&billingdomain.Billing{},
		&billingdomain.BillingItem{},
		&billingdomain.Payment{},
		&auditdomain.AuditLog{},
		&reportdomain.Report{},
		&notifydomain.Notification{},
	)
}
