package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/medoshield/chatassist/internal/logging"
	"github.com/medoshield/chatassist/migrations"
)

// ErrDirtySchema means a previous migration failed half way and the
// suggestion_logs schema needs a manual fix before the server can start.
var ErrDirtySchema = errors.New("migration schema is dirty")

// Migrator applies the suggestion_logs schema.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator reads migrations from migrationsPath on disk, or from the copy
// compiled into the binary when the path is empty.
func NewMigrator(dsn, migrationsPath string) (*Migrator, error) {
	var (
		m   *migrate.Migrate
		err error
	)
	if migrationsPath == "" {
		src, srcErr := iofs.New(migrations.FS, ".")
		if srcErr != nil {
			return nil, fmt.Errorf("opening embedded migrations: %w", srcErr)
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, dsn)
	} else {
		m, err = migrate.New("file://"+migrationsPath, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Apply runs every pending up migration and returns the resulting version.
// Zero with a nil error means the source holds no migrations at all.
func (m *Migrator) Apply(logger *logging.Logger) (uint, error) {
	if logger == nil {
		logger = logging.Default
	}

	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return 0, fmt.Errorf("%w: version %d", ErrDirtySchema, dirty.Version)
		}
		return 0, fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("No migrations applied")
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("reading migration version: %w", err)
	case dirty:
		return version, fmt.Errorf("%w: version %d", ErrDirtySchema, version)
	}

	logger.Info("Migrations applied", map[string]interface{}{"version": version})
	return version, nil
}

// Close releases the source and the database connection. The source error
// wins when both fail.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
