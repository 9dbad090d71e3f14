// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

const (
	// DefaultListLimit applies when a ScanFilter has no limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page.
	MaxListLimit = 500
	// topDiseases is the number of rows in Stats.TopDiseases.
	topDiseases = 10
	// DefaultSlowQueryThreshold marks queries logged as slow.
	DefaultSlowQueryThreshold = time.Second
)

// ErrScanNotFound is returned when no scan has the requested id.
var ErrScanNotFound = errors.NewStd("scan not found")

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Save(scan *Scan) error
	Get(id string) (Scan, error)
	List(filter ScanFilter) ([]Scan, int64, error)
	Delete(id string) error
	Stats() (Stats, error)
	Each(ctx context.Context, batchSize int, fn func([]Scan) error) error
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// Kind names the backend New selects for settings: "sqlite", "mysql",
// "postgres", or "" when none is enabled.
func Kind(settings *conf.Settings) string {
	switch {
	case settings.Output.SQLite.Enabled:
		return "sqlite"
	case settings.Output.MySQL.Enabled:
		return "mysql"
	case settings.Output.Postgres.Enabled:
		return "postgres"
	default:
		return ""
	}
}

// New returns the store enabled in settings, or nil when persistence is off.
// SQLite wins over MySQL, which wins over PostgreSQL.
func New(settings *conf.Settings) Interface {
	switch Kind(settings) {
	case "sqlite":
		return &SQLiteStore{Settings: settings}
	case "mysql":
		return &MySQLStore{Settings: settings}
	case "postgres":
		return &PostgresStore{Settings: settings}
	default:
		return nil
	}
}

// Save stores a scan and its predictions in one transaction. A public id is
// assigned when the scan has none.
func (ds *DataStore) Save(scan *Scan) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	if scan.PublicID == "" {
		scan.PublicID = uuid.NewString()
	}

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Predictions").Create(scan).Error; err != nil {
			return fmt.Errorf("saving scan: %w", err)
		}
		for i := range scan.Predictions {
			scan.Predictions[i].ID = 0
			scan.Predictions[i].ScanID = scan.ID
		}
		if len(scan.Predictions) > 0 {
			if err := tx.Create(&scan.Predictions).Error; err != nil {
				return fmt.Errorf("saving predictions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return dbError(err, "save")
	}
	return nil
}

// Get loads a scan with its predictions by public id.
func (ds *DataStore) Get(id string) (Scan, error) {
	if ds.DB == nil {
		return Scan{}, errNotOpen()
	}

	var scan Scan
	err := ds.DB.Preload("Predictions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("public_id = ?", id).First(&scan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Scan{}, notFound(id)
	}
	if err != nil {
		return Scan{}, dbError(err, "get")
	}
	return scan, nil
}

// List returns scans matching filter, newest first, and the total number of
// matching rows ignoring paging.
func (ds *DataStore) List(filter ScanFilter) ([]Scan, int64, error) {
	if ds.DB == nil {
		return nil, 0, errNotOpen()
	}

	q := ds.DB.Model(&Scan{})
	if crop := strings.TrimSpace(filter.Crop); crop != "" {
		q = q.Where("crop = ?", crop)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "count")
	}

	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	var scans []Scan
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(max(filter.Offset, 0)).
		Find(&scans).Error
	if err != nil {
		return nil, 0, dbError(err, "list")
	}
	return scans, total, nil
}

// Delete removes a scan and its predictions.
func (ds *DataStore) Delete(id string) error {
	if ds.DB == nil {
		return errNotOpen()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var scan Scan
		err := tx.Select("id").Where("public_id = ?", id).First(&scan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(id)
		}
		if err != nil {
			return dbError(err, "delete")
		}
		if err := tx.Where("scan_id = ?", scan.ID).Delete(&Prediction{}).Error; err != nil {
			return dbError(err, "delete")
		}
		if err := tx.Delete(&Scan{}, scan.ID).Error; err != nil {
			return dbError(err, "delete")
		}
		return nil
	})
}

// Stats counts scans by status and the most frequent diseases.
func (ds *DataStore) Stats() (Stats, error) {
	if ds.DB == nil {
		return Stats{}, errNotOpen()
	}

	var stats Stats
	if err := ds.DB.Model(&Scan{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, dbError(err, "stats")
	}

	err := ds.DB.Model(&Scan{}).
		Select("status, COUNT(*) AS count").
		Group("status").Order("status").
		Scan(&stats.ByStatus).Error
	if err != nil {
		return Stats{}, dbError(err, "stats")
	}

	err = ds.DB.Model(&Scan{}).
		Select("crop, disease, COUNT(*) AS count").
		Where("status = ?", "DISEASED").
		Group("crop, disease").
		Order("count DESC").Order("crop").Order("disease").
		Limit(topDiseases).
		Scan(&stats.TopDiseases).Error
	if err != nil {
		return Stats{}, dbError(err, "stats")
	}

	return stats, nil
}

// closeDB closes the generic database handle behind db.
func closeDB(db *gorm.DB) error {
	if db == nil {
		return errNotOpen()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	return nil
}

func errNotOpen() error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
}

func notFound(id string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrScanNotFound, id)).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Build()
}

func dbError(err error, op string) error {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return err
	}
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Build()
}
