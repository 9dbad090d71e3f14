// Package diagnosis turns raw classifier output into a disease descriptor and
// resolves treatment guidance from an immutable knowledge base.
//
// Both operations are pure: Normalize and (*Resolver).Resolve never fail and
// are safe for concurrent use.
package diagnosis

import "slices"

// ConfidenceTier buckets a classification score.
type ConfidenceTier string

const (
	TierLow      ConfidenceTier = "Low"
	TierMedium   ConfidenceTier = "Medium"
	TierHigh     ConfidenceTier = "High"
	TierVeryHigh ConfidenceTier = "Very High"
)

// Severity of a disease as recorded in the knowledge base.
type Severity string

const (
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityVeryHigh Severity = "Very High"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMedium, SeverityHigh, SeverityVeryHigh:
		return true
	}
	return false
}

// Rank orders severities; unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityVeryHigh:
		return 3
	}
	return 0
}

// Descriptor is the normalized view of one classifier prediction.
type Descriptor struct {
	Crop            string         `json:"crop"`
	Disease         string         `json:"disease"`
	OriginalLabel   string         `json:"original_label"`
	Confidence      float64        `json:"confidence"`
	ConfidenceLevel ConfidenceTier `json:"confidence_level"`
}

// SolutionKind tags the variants of Solution.
type SolutionKind string

const (
	KindDisease  SolutionKind = "disease"
	KindHealthy  SolutionKind = "healthy"
	KindFallback SolutionKind = "fallback"
)

// Solution is the result of resolving a label. It is one of DiseaseEntry,
// HealthyEntry or Fallback; callers switch on the concrete type.
type Solution interface {
	Kind() SolutionKind
	isSolution()
}

// DiseaseEntry holds treatment guidance for one disease.
type DiseaseEntry struct {
	Crop       string   `json:"crop" yaml:"crop"`
	Disease    string   `json:"disease" yaml:"disease"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Organic    []string `json:"organic" yaml:"organic"`
	Chemical   []string `json:"chemical" yaml:"chemical"`
	Prevention []string `json:"prevention" yaml:"prevention"`
}

// HealthyEntry holds maintenance guidance for a healthy crop.
type HealthyEntry struct {
	Crop        string   `json:"crop" yaml:"crop"`
	Disease     string   `json:"disease" yaml:"-"`
	Message     string   `json:"message" yaml:"message"`
	Maintenance []string `json:"maintenance" yaml:"maintenance"`
}

// Fallback is synthesized when no knowledge base entry matches. Healthy
// fallbacks carry maintenance tips, unknown ones a recommendation.
type Fallback struct {
	Crop           string   `json:"crop"`
	Disease        string   `json:"disease"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation,omitempty"`
	Maintenance    []string `json:"maintenance,omitempty"`
	Healthy        bool     `json:"-"`
}

func (DiseaseEntry) Kind() SolutionKind { return KindDisease }
func (HealthyEntry) Kind() SolutionKind { return KindHealthy }
func (Fallback) Kind() SolutionKind     { return KindFallback }

func (DiseaseEntry) isSolution() {}
func (HealthyEntry) isSolution() {}
func (Fallback) isSolution()     {}

func (e DiseaseEntry) clone() DiseaseEntry {
	e.Organic = slices.Clone(e.Organic)
	e.Chemical = slices.Clone(e.Chemical)
	e.Prevention = slices.Clone(e.Prevention)
	return e
}

func (e HealthyEntry) clone() HealthyEntry {
	e.Maintenance = slices.Clone(e.Maintenance)
	return e
}
