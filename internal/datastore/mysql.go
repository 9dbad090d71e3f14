package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	cfg := settings.Output.MySQL
	if cfg.Host == "" || cfg.Database == "" {
		return errors.Newf("mysql host and database are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func mysqlDSN(settings *conf.Settings) string {
	cfg := settings.Output.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// Open sets up the MySQL database connection
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	db, err := gorm.Open(mysql.Open(mysqlDSN(store.Settings)), gormConfig())
	if err != nil {
		GetLogger().Error("failed to open MySQL database",
			logger.String("host", store.Settings.Output.MySQL.Host),
			logger.String("port", store.Settings.Output.MySQL.Port),
			logger.String("database", store.Settings.Output.MySQL.Database),
			logger.Error(err))
		return dbError(err, "open")
	}

	store.DB = db
	target := store.Settings.Output.MySQL.Host + "/" + store.Settings.Output.MySQL.Database
	return performAutoMigration(db, store.Settings.Debug, "MySQL", target)
}

// Close MySQL database connections
func (store *MySQLStore) Close() error {
	return closeDB(store.DB)
}
