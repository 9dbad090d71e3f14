package diagnosis

import (
	"slices"
	"strings"
)

// Status summarizes a diagnosis for scan history and events.
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusDiseased Status = "DISEASED"
	StatusFailed   Status = "FAILED"
)

// Report is a Descriptor merged with its Solution. Solution fields win where
// both define crop and disease.
type Report struct {
	Crop            string         `json:"crop"`
	Disease         string         `json:"disease"`
	OriginalLabel   string         `json:"original_label"`
	Confidence      float64        `json:"confidence"`
	ConfidenceLevel ConfidenceTier `json:"confidence_level"`
	Severity        Severity       `json:"severity,omitempty"`
	Organic         []string       `json:"organic,omitempty"`
	Chemical        []string       `json:"chemical,omitempty"`
	Prevention      []string       `json:"prevention,omitempty"`
	Message         string         `json:"message,omitempty"`
	Maintenance     []string       `json:"maintenance,omitempty"`
	Recommendation  string         `json:"recommendation,omitempty"`
	Status          Status         `json:"status"`
	Match           SolutionKind   `json:"match"`
}

// Merge combines a descriptor and a solution into a Report.
func Merge(d Descriptor, s Solution) Report {
	r := Report{
		Crop:            d.Crop,
		Disease:         d.Disease,
		OriginalLabel:   d.OriginalLabel,
		Confidence:      d.Confidence,
		ConfidenceLevel: d.ConfidenceLevel,
		Status:          StatusDiseased,
	}

	switch sol := s.(type) {
	case DiseaseEntry:
		r.Crop, r.Disease = sol.Crop, sol.Disease
		r.Severity = sol.Severity
		r.Organic = slices.Clone(sol.Organic)
		r.Chemical = slices.Clone(sol.Chemical)
		r.Prevention = slices.Clone(sol.Prevention)
		r.Match = KindDisease
	case HealthyEntry:
		r.Crop, r.Disease = sol.Crop, sol.Disease
		r.Message = sol.Message
		r.Maintenance = slices.Clone(sol.Maintenance)
		r.Status = StatusHealthy
		r.Match = KindHealthy
	case Fallback:
		r.Crop, r.Disease = sol.Crop, sol.Disease
		r.Message = sol.Message
		r.Maintenance = slices.Clone(sol.Maintenance)
		r.Recommendation = sol.Recommendation
		if sol.Healthy {
			r.Status = StatusHealthy
		}
		r.Match = KindFallback
	}

	return r
}

// Diagnose normalizes and resolves one prediction.
func (r *Resolver) Diagnose(label string, score float64) Report {
	return Merge(Normalize(label, score), r.Resolve(label))
}

// FailedReport is returned when an image could not be classified.
func FailedReport() Report {
	return Report{
		Crop:            unknownCrop,
		Disease:         "Error during analysis",
		Confidence:      0,
		ConfidenceLevel: TierLow,
		Status:          StatusFailed,
	}
}

// IsHealthyLabel reports whether a raw label names a healthy plant.
func IsHealthyLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "healthy")
}
