package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/unicode"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
)

func TestEmbeddedKnowledgeBase(t *testing.T) {
	kb, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 34, kb.Len())

	diseaseKeys := kb.DiseaseKeys()
	require.Len(t, diseaseKeys, 22)
	assert.Equal(t, "Tomato___Early_blight", diseaseKeys[0])
	assert.Equal(t, "Grape___Black_rot", diseaseKeys[7])

	assert.Equal(t, []string{
		"Tomato___healthy",
		"Potato___healthy",
		"Apple___healthy",
		"Pepper,_bell___healthy",
		"Grape___healthy",
		"Corn_(maize)___healthy",
		"Peach___healthy",
		"Strawberry___healthy",
		"Blueberry___healthy",
		"Cherry_(including_sour)___healthy",
		"Raspberry___healthy",
		"Soybean___healthy",
	}, kb.HealthyKeys())

	early, ok := kb.Disease("Tomato___Early_blight")
	require.True(t, ok)
	assert.Equal(t, "Early Blight", early.Disease)
	assert.Equal(t, diagnosis.SeverityMedium, early.Severity)
	assert.Equal(t, "Neem oil spray (3 ml/L water)", early.Organic[0])

	pepper, ok := kb.Disease("Pepper,_bell___Bacterial_spot")
	require.True(t, ok)
	assert.Equal(t, "Bell Pepper", pepper.Crop)

	late, ok := kb.Disease("Potato___Late_blight")
	require.True(t, ok)
	assert.Equal(t, diagnosis.SeverityVeryHigh, late.Severity)

	tomato, ok := kb.Healthy("Tomato___healthy")
	require.True(t, ok)
	assert.Equal(t, "Healthy", tomato.Disease)
	assert.Equal(t, "Your tomato plant appears healthy! Keep up the good practices.", tomato.Message)
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestAccessorsReturnCopies(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	entry, ok := kb.Disease("Tomato___Late_blight")
	require.True(t, ok)
	entry.Organic[0] = "tampered"

	again, _ := kb.Disease("Tomato___Late_blight")
	assert.Equal(t, "Copper oxychloride spray (3 g/L)", again.Organic[0])
}

func TestLoadCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
diseases:
  - key: Rice___Blast
    crop: Rice
    disease: Blast
    severity: High
    organic: [Silicon amendment]
    chemical: [Tricyclazole 75% WP (0.6 g/L)]
    prevention: [Balanced nitrogen]
healthy:
  - key: Rice___healthy
    crop: Rice
    message: Your rice crop is healthy!
    maintenance: [Keep fields weed free]
`), 0o600))

	kb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, kb.Len())

	sol, ok := kb.Lookup("Rice___healthy")
	require.True(t, ok)
	assert.Equal(t, diagnosis.KindHealthy, sol.Kind())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "diseases:\n  - key: A___b\n    crop: A\n    disease: B\n    severity: High\n    cure: none\n"},
		{"bad severity", "diseases:\n  - key: A___b\n    crop: A\n    disease: B\n    severity: Low\n"},
		{"non canonical key", "diseases:\n  - key: Ab\n    crop: A\n    disease: B\n    severity: High\n"},
		{"duplicate key", "diseases:\n  - {key: A___b, crop: A, disease: B, severity: High}\n  - {key: A___b, crop: A, disease: B, severity: High}\n"},
		{"healthy key without healthy", "healthy:\n  - key: A___fine\n    crop: A\n    message: ok\n"},
		{"not yaml", "diseases: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestParseTextEncodings(t *testing.T) {
	// "Cafe\u0301" is the decomposed form of "Café"
	doc := "diseases:\n  - {key: Cafe\u0301___Rust, crop: Cafe\u0301, disease: Rust, severity: High}\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(doc))
	require.NoError(t, err)

	inputs := map[string][]byte{
		"utf8":     []byte(doc),
		"utf8 bom": append([]byte{0xEF, 0xBB, 0xBF}, doc...),
		"utf16 le": utf16,
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			kb, err := Parse(data)
			require.NoError(t, err)
			entry, ok := kb.Disease("Caf\u00e9___Rust")
			require.True(t, ok)
			assert.Equal(t, "Caf\u00e9", entry.Crop)
		})
	}
}
