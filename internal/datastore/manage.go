package datastore

import (
	"gorm.io/gorm"

	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

// gormConfig returns the shared GORM configuration with logging routed
// through the datastore module logger.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: newQueryLogger(GetLogger(), DefaultSlowQueryThreshold),
	}
}

// performAutoMigration creates or updates the scan tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, target string) error {
	log := GetLogger().With(logger.String("db_type", dbType))
	if debug {
		log.Debug("running database migration", logger.String("target", target))
	}

	if err := db.AutoMigrate(&Scan{}, &Prediction{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Context("db_type", dbType).
			Build()
	}

	log.Info("database ready")
	return nil
}
