package datastore

import (
	"net"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

// PostgresStore implements DataStore for PostgreSQL
type PostgresStore struct {
	DataStore
	Settings *conf.Settings
}

func validatePostgresConfig(settings *conf.Settings) error {
	cfg := settings.Output.Postgres
	if cfg.Host == "" || cfg.Database == "" {
		return errors.Newf("postgres host and database are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func postgresDSN(settings *conf.Settings) string {
	cfg := settings.Output.Postgres
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Open sets up the PostgreSQL database connection
func (store *PostgresStore) Open() error {
	if err := validatePostgresConfig(store.Settings); err != nil {
		return err
	}

	db, err := gorm.Open(postgres.Open(postgresDSN(store.Settings)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open PostgreSQL database",
			logger.String("host", store.Settings.Output.Postgres.Host),
			logger.String("database", store.Settings.Output.Postgres.Database),
			logger.Error(err))
		return dbError(err, "open")
	}

	store.DB = db
	target := store.Settings.Output.Postgres.Host + "/" + store.Settings.Output.Postgres.Database
	return performAutoMigration(db, store.Settings.Debug, "PostgreSQL", target)
}

// Close PostgreSQL database connections
func (store *PostgresStore) Close() error {
	return closeDB(store.DB)
}
