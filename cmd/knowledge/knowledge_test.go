package knowledge

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/diagnosis"
)

func execute(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	t.Parallel()

	out, err := execute(t, &conf.Settings{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.True(t, strings.HasPrefix(lines[1], "Tomato___Early_blight"))
	assert.Contains(t, lines[1], "Early Blight")
	assert.Contains(t, out, "Potato___Late_blight")
	assert.Contains(t, out, "Tomato___healthy")
}

func TestListJSON(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Output.JSON = true
	out, err := execute(t, settings)
	require.NoError(t, err)

	var entries []struct {
		Key  string                 `json:"key"`
		Kind diagnosis.SolutionKind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "Tomato___Early_blight", entries[0].Key)
	assert.Equal(t, diagnosis.KindDisease, entries[0].Kind)
	assert.Equal(t, diagnosis.KindHealthy, entries[len(entries)-1].Kind)
}

func TestShow(t *testing.T) {
	t.Parallel()

	out, err := execute(t, &conf.Settings{}, "show", "Potato Late blight")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Potato___Late_blight (disease)\n"))
	assert.Contains(t, out, "disease: Late Blight")
	assert.Contains(t, out, "severity: Very High")

	settings := &conf.Settings{}
	settings.Output.JSON = true
	out, err = execute(t, settings, "show", "Mystery___Rot")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind":"fallback"`)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "kb.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`diseases:
  - key: "Tomato___Leaf_Mold"
    crop: "Tomato"
    disease: "Leaf Mold"
    severity: "Medium"
    organic: ["Improve ventilation"]
    chemical: ["Chlorothalonil"]
    prevention: ["Lower humidity"]
healthy:
  - key: "Tomato___healthy"
    crop: "Tomato"
    message: "Looks good."
    maintenance: ["Water at the base"]
`), 0o600))

	out, err := execute(t, &conf.Settings{}, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 disease and 1 healthy entries")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("diseases:\n  - key: x\n    colour: red\n"), 0o600))
	_, err = execute(t, &conf.Settings{}, "validate", bad)
	require.Error(t, err)
}
