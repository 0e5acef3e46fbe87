package postgres

//nolint:revive
import (
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"carhive/config"
)

const (
	maxIdleConnections = 10
	// Booking creation holds a vehicle row lock for the duration of the
	// conflict check, so the write pool is kept wider than the idle floor.
	maxOpenConnections = 25
)

// Connection splits reads and writes. Status transitions and booking creation
// go through Write; listing and detail queries use Read.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

func New(config *config.Config) *Connection {
	pg := config.DB.Postgres

	return &Connection{
		Read: connect("read",
			pg.Read.Username, pg.Read.Password, pg.Read.Host, pg.Read.Port,
			prefixed(config, pg.Read.Name), pg.Read.SSLMode,
			pg.MaxRetry, pg.RetryWaitTime,
		),
		Write: connect("write",
			pg.Write.Username, pg.Write.Password, pg.Write.Host, pg.Write.Port,
			prefixed(config, pg.Write.Name), pg.Write.SSLMode,
			pg.MaxRetry, pg.RetryWaitTime,
		),
	}
}

func prefixed(config *config.Config, baseName string) string {
	return config.DB.Postgres.Prefix + baseName
}

func connect(name, username, password, host, port, dbName, sslMode string, maxRetry, waitTime int) *sqlx.DB {
	descriptor := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		username,
		password,
		net.JoinHostPort(host, port),
		dbName,
		sslMode,
	)

	for attempt := 1; attempt <= maxRetry; attempt++ {
		sqlDB, err := sqlx.Connect("postgres", descriptor)
		if err == nil {
			sqlDB.SetMaxIdleConns(maxIdleConnections)
			sqlDB.SetMaxOpenConns(maxOpenConnections)

			log.Info().
				Str("name", name).
				Str("host", host).
				Str("port", port).
				Str("dbName", dbName).
				Msg("Connected to database")

			return sqlDB
		}

		log.Error().
			Err(err).
			Str("name", name).
			Str("dbName", dbName).
			Int("attempt", attempt).
			Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(waitTime) * time.Second)
	}

	log.Fatal().Str("name", name).Str("dbName", dbName).Msg("Exhausted database connection retries")

	return nil
}
