// Package metrics provides the Prometheus collectors used across cropdoc.
package metrics

// Pipeline stages, used as the operation label.
const (
	OpClassify    = "classify"
	OpDiagnose    = "diagnose"
	OpCacheLookup = "cache_lookup"
	OpCacheStore  = "cache_store"
	OpScanSave    = "scan_save"
	OpPublish     = "publish"
)

// Outcomes, used as the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusHit     = "hit"
	StatusMiss    = "miss"
)

// Recorder is what the analyzer needs from a metrics backend.
type Recorder interface {
	RecordOperation(operation, status string)
	RecordDuration(operation string, seconds float64)
	RecordError(operation, errorType string)
}

// NoOpRecorder is used when metrics are off.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordOperation(string, string) {}
func (NoOpRecorder) RecordDuration(string, float64) {}
func (NoOpRecorder) RecordError(string, string)     {}
