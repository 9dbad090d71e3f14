// Package events provides an asynchronous event bus that fans completed
// diagnoses out to publishers without blocking the analysis path.
package events

import (
	"time"

	"github.com/tphakala/cropdoc/internal/diagnosis"
)

// DiagnosisEvent is emitted once per analyzed image.
type DiagnosisEvent struct {
	ScanID         string           // public scan id, empty when history is disabled
	Node           string           // node name from settings
	Source         string           // cli, api or telegram
	ImageName      string
	Backend        string
	Time           time.Time
	ProcessingTime time.Duration
	Report         diagnosis.Report
}

// EventConsumer processes diagnosis events
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent handles a single event. Errors are logged and counted
	// by the bus; they do not stop delivery to other consumers.
	ProcessEvent(event DiagnosisEvent) error
}

// EventBusStats contains runtime statistics for monitoring
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}
