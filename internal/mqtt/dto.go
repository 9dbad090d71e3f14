package mqtt

import (
	"time"

	"github.com/tphakala/cropdoc/internal/events"
)

// DiagnosisEventDTO is the JSON payload published for each diagnosis.
// Field names are part of the published contract.
type DiagnosisEventDTO struct {
	ScanID           string    `json:"scan_id,omitempty"`
	Node             string    `json:"node"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
	ImageName        string    `json:"image_name,omitempty"`
	Backend          string    `json:"backend,omitempty"`
	Crop             string    `json:"crop"`
	Disease          string    `json:"disease"`
	OriginalLabel    string    `json:"original_label"`
	Status           string    `json:"status"`
	Severity         string    `json:"severity,omitempty"`
	Confidence       float64   `json:"confidence"`
	ConfidenceLevel  string    `json:"confidence_level"`
	Match            string    `json:"match"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// NewDiagnosisEventDTO flattens an event for publishing.
func NewDiagnosisEventDTO(ev events.DiagnosisEvent) DiagnosisEventDTO {
	r := ev.Report
	return DiagnosisEventDTO{
		ScanID:           ev.ScanID,
		Node:             ev.Node,
		Source:           ev.Source,
		Timestamp:        ev.Time.UTC(),
		ImageName:        ev.ImageName,
		Backend:          ev.Backend,
		Crop:             r.Crop,
		Disease:          r.Disease,
		OriginalLabel:    r.OriginalLabel,
		Status:           string(r.Status),
		Severity:         string(r.Severity),
		Confidence:       r.Confidence,
		ConfidenceLevel:  string(r.ConfidenceLevel),
		Match:            string(r.Match),
		ProcessingTimeMs: ev.ProcessingTime.Milliseconds(),
	}
}
