package diagnosis

import (
	"strconv"
	"strings"
)

// Label separators used by the supported classifier label conventions.
const (
	labelSeparator = "___"
	unknownCrop    = "Unknown"
)

// Tier maps a 0-1 score to its confidence tier. Thresholds are exclusive
// lower bounds: 0.9 is High, 0.6 is Low.
func Tier(score float64) ConfidenceTier {
	switch {
	case score > 0.9:
		return TierVeryHigh
	case score > 0.75:
		return TierHigh
	case score > 0.6:
		return TierMedium
	default:
		return TierLow
	}
}

// Percent scales score to a percentage rounded to two decimals. Rounding is
// done on the exact binary value with ties to even, so 0.80035 gives 80.03.
func Percent(score float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(score*100, 'f', 2, 64), 64)
	return v
}

// Normalize parses a classifier label and score into a Descriptor.
//
// Labels of the form "Crop___Disease_Name" split on the first separator with
// underscores in the disease turned into spaces. Labels of the form
// "Crop Disease name" split on the first space. Anything else is treated as a
// bare disease name of an unknown crop. Scores are not range checked.
func Normalize(label string, score float64) Descriptor {
	crop, disease := unknownCrop, label

	if before, after, ok := strings.Cut(label, labelSeparator); ok {
		crop = before
		disease = strings.ReplaceAll(after, "_", " ")
	} else if before, after, ok := strings.Cut(label, " "); ok {
		crop = before
		disease = after
	}

	return Descriptor{
		Crop:            crop,
		Disease:         disease,
		OriginalLabel:   label,
		Confidence:      Percent(score),
		ConfidenceLevel: Tier(score),
	}
}
