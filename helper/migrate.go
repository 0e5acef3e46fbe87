package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net"

	"carhive/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationSource = "file://migrations/postgres"

func dbName(config *config.Config) string {
	if config.DB.Postgres.Prefix != "" {
		return config.DB.Postgres.Prefix + config.DB.Postgres.Write.Name
	}

	return config.DB.Postgres.Write.Name
}

func newMigrator(config *config.Config) (*migrate.Migrate, error) {
	connectionString := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s&x-migrations-table=%s",
		config.DB.Postgres.Write.Username,
		config.DB.Postgres.Write.Password,
		net.JoinHostPort(config.DB.Postgres.Write.Host, config.DB.Postgres.Write.Port),
		dbName(config),
		config.DB.Postgres.Write.SSLMode,
		config.DB.Postgres.MigrationTable,
	)

	mig, err := migrate.New(migrationSource, connectionString)
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}

	return mig, nil
}

func run(config *config.Config, apply func(*migrate.Migrate) error, doneMsg string) error {
	mig, err := newMigrator(config)
	if err != nil {
		return err
	}

	defer mig.Close()

	if err := apply(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error applying migration action: %w", err)
	}

	log.Info().Msg(doneMsg)

	return nil
}

func Up(config *config.Config) error {
	return run(config, (*migrate.Migrate).Up, "Database migrations completed successfully")
}

func StepUp(config *config.Config) error {
	return run(config, func(m *migrate.Migrate) error { return m.Steps(1) }, "Database migration step applied successfully")
}

func Down(config *config.Config) error {
	return run(config, func(m *migrate.Migrate) error { return m.Steps(-1) }, "Database migration rolled back successfully")
}

func Drop(config *config.Config) error {
	return run(config, (*migrate.Migrate).Down, "Database migrations rolled back successfully")
}
