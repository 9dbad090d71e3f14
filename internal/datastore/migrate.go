package datastore

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

// DefaultBatchSize is the number of scans read per query by Each.
const DefaultBatchSize = 500

// CopyResult counts the outcome of Copy.
type CopyResult struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"` // already present in the target
}

// Each calls fn with successive batches of scans in insertion order,
// predictions included. Iteration stops at the first error from fn or when
// ctx is done.
func (ds *DataStore) Each(ctx context.Context, batchSize int, fn func([]Scan) error) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var batch []Scan
	res := ds.DB.WithContext(ctx).
		Preload("Predictions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(batch)
		})
	if res.Error != nil {
		if errors.Is(res.Error, context.Canceled) || errors.Is(res.Error, context.DeadlineExceeded) {
			return res.Error
		}
		return dbError(res.Error, "each")
	}
	return nil
}

// Copy replicates every scan in src into dst. Scans whose public id already
// exists in dst are skipped, so an interrupted copy can be rerun.
func Copy(ctx context.Context, src, dst Interface, batchSize int) (CopyResult, error) {
	var result CopyResult
	log := GetLogger()

	err := src.Each(ctx, batchSize, func(scans []Scan) error {
		for i := range scans {
			scan := scans[i]
			_, err := dst.Get(scan.PublicID)
			switch {
			case err == nil:
				result.Skipped++
				continue
			case !errors.Is(err, ErrScanNotFound):
				return err
			}

			scan.ID = 0
			if err := dst.Save(&scan); err != nil {
				return err
			}
			result.Copied++
		}
		log.Debug("copied batch",
			logger.Int("copied", result.Copied),
			logger.Int("skipped", result.Skipped))
		return nil
	})
	if err != nil {
		return result, err
	}

	log.Info("scan history copied",
		logger.Int("copied", result.Copied),
		logger.Int("skipped", result.Skipped))
	return result, nil
}
