package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

// queryLogger routes GORM output to the datastore module logger. Statements
// are logged at TRACE, failures and slow queries at WARN.
type queryLogger struct {
	log  logger.Logger
	slow time.Duration
}

var _ gormlogger.Interface = queryLogger{}

func newQueryLogger(log logger.Logger, slow time.Duration) queryLogger {
	return queryLogger{log: log, slow: slow}
}

// LogMode is a no-op, levels come from logging.module_levels.
func (q queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q queryLogger) Info(_ context.Context, msg string, args ...any) {
	q.log.Debug(fmt.Sprintf(msg, args...))
}

func (q queryLogger) Warn(_ context.Context, msg string, args ...any) {
	q.log.Warn(fmt.Sprintf(msg, args...))
}

func (q queryLogger) Error(_ context.Context, msg string, args ...any) {
	q.log.Error(fmt.Sprintf(msg, args...))
}

func (q queryLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []logger.Field{
		logger.String("sql", sql),
		logger.Int64("rows", rows),
		logger.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		q.log.Warn("query failed", append(fields, logger.Error(err))...)
	case q.slow > 0 && elapsed > q.slow:
		q.log.Warn("slow query", fields...)
	default:
		q.log.Trace("query", fields...)
	}
}
