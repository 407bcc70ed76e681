package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted model in creation order.
func Models() []any {
	return []any{
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&propertydomain.Property{},
		&ledgerdomain.LedgerEntry{},
		&bookingdomain.Booking{},
		&feeplandomain.FeePlan{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceSequence{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	}
}

// Migrate brings the schema up to date. Postgres runs the embedded SQL
// migrations; sqlite and mysql fall back to gorm AutoMigrate.
func Migrate(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql", "":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		return AutoMigrate(conn)
	}
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
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
