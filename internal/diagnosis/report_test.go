package diagnosis_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/diagnosis"
)

func TestDiagnoseDisease(t *testing.T) {
	r := newResolver(t)

	rep := r.Diagnose("Pepper,_bell___Bacterial_spot", 0.93)

	// Knowledge base names override the parsed label.
	assert.Equal(t, "Bell Pepper", rep.Crop)
	assert.Equal(t, "Bacterial Spot", rep.Disease)
	assert.Equal(t, "Pepper,_bell___Bacterial_spot", rep.OriginalLabel)
	assert.InDelta(t, 93.0, rep.Confidence, 1e-9)
	assert.Equal(t, diagnosis.TierVeryHigh, rep.ConfidenceLevel)
	assert.Equal(t, diagnosis.SeverityMedium, rep.Severity)
	assert.Equal(t, diagnosis.StatusDiseased, rep.Status)
	assert.Equal(t, diagnosis.KindDisease, rep.Match)
	assert.NotEmpty(t, rep.Organic)
	assert.Empty(t, rep.Message)
}

func TestDiagnoseHealthy(t *testing.T) {
	r := newResolver(t)

	rep := r.Diagnose("Tomato___healthy", 0.99)
	assert.Equal(t, diagnosis.StatusHealthy, rep.Status)
	assert.Equal(t, diagnosis.KindHealthy, rep.Match)
	assert.Equal(t, "Healthy", rep.Disease)
	assert.NotEmpty(t, rep.Maintenance)
	assert.Empty(t, rep.Severity)

	rep = r.Diagnose("SomeCrop healthy", 0.4)
	assert.Equal(t, diagnosis.StatusHealthy, rep.Status)
	assert.Equal(t, diagnosis.KindFallback, rep.Match)
	assert.Equal(t, "SomeCrop", rep.Crop)
	assert.Equal(t, diagnosis.TierLow, rep.ConfidenceLevel)
}

func TestDiagnoseUnknown(t *testing.T) {
	r := newResolver(t)

	rep := r.Diagnose("Unknown Plant Disease XYZ", 0.7)
	assert.Equal(t, diagnosis.StatusDiseased, rep.Status)
	assert.Equal(t, diagnosis.KindFallback, rep.Match)
	assert.Equal(t, "Unknown", rep.Crop)
	assert.Equal(t, "Plant Disease XYZ", rep.Disease)
	assert.NotEmpty(t, rep.Recommendation)
}

func TestReportJSONFieldNames(t *testing.T) {
	r := newResolver(t)

	data, err := json.Marshal(r.Diagnose("Tomato___Early_blight", 0.87))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{
		"crop", "disease", "original_label", "confidence", "confidence_level",
		"severity", "organic", "chemical", "prevention", "status", "match",
	} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "recommendation")
	assert.InDelta(t, 87.0, fields["confidence"], 1e-9)
}

func TestDiagnoseIsByteStable(t *testing.T) {
	r := newResolver(t)

	a, err := json.Marshal(r.Diagnose("Tomato Early blight", 0.95))
	require.NoError(t, err)
	b, err := json.Marshal(r.Diagnose("Tomato Early blight", 0.95))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFailedReport(t *testing.T) {
	rep := diagnosis.FailedReport()
	assert.Equal(t, diagnosis.StatusFailed, rep.Status)
	assert.Equal(t, "Unknown", rep.Crop)
	assert.Equal(t, "Error during analysis", rep.Disease)
	assert.Equal(t, diagnosis.TierLow, rep.ConfidenceLevel)
}

func TestIsHealthyLabel(t *testing.T) {
	assert.True(t, diagnosis.IsHealthyLabel("Tomato___healthy"))
	assert.True(t, diagnosis.IsHealthyLabel("HEALTHY"))
	assert.False(t, diagnosis.IsHealthyLabel("Tomato___Early_blight"))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, diagnosis.SeverityMedium.Rank(), diagnosis.SeverityHigh.Rank())
	assert.Less(t, diagnosis.SeverityHigh.Rank(), diagnosis.SeverityVeryHigh.Rank())
	assert.Equal(t, 0, diagnosis.Severity("bogus").Rank())
	assert.False(t, diagnosis.Severity("Low").Valid())
}
