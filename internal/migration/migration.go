package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	ratingdomain "github.com/ratecell/ratecell/internal/rating/domain"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations so the rating tables
// exist before the first CDR arrives.
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
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema through gorm for dialects the SQL
// migrations do not target (sqlite in local and test runs).
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&tariffdomain.TariffPlan{},
		&subscriberdomain.Subscriber{},
		&usagedomain.UsageRecord{},
		&ratingdomain.RatedEvent{},
	)
}
