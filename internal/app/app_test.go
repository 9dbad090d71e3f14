package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/classifier"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	tu "github.com/tphakala/cropdoc/internal/testutil"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Main.Name = "test-node"
	s.Cache.Backend = conf.CacheMemory
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = filepath.Join(t.TempDir(), "scans.db")
	return s
}

func TestNewWithHistory(t *testing.T) {
	t.Parallel()

	static := &tu.StaticClassifier{Predictions: []classifier.Prediction{
		{Label: "Apple___Black_rot", Score: 0.81},
	}}
	a, err := New(t.Context(), testSettings(t), Options{History: true, Classifier: static})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NotNil(t, a.Store)
	assert.Nil(t, a.Bus, "no consumer enabled")
	assert.Equal(t, "static", a.Analyzer.Backend())

	res, err := a.Analyzer.Analyze(t.Context(), analysis.Input{
		Image:  tu.LeafPNG(t),
		Name:   "leaf.png",
		Source: analysis.SourceCLI,
	})
	require.NoError(t, err)
	assert.Equal(t, diagnosis.StatusDiseased, res.Report.Status)
	assert.Equal(t, "Black Rot", res.Report.Disease)
	require.NotEmpty(t, res.ScanID)

	scan, err := a.Store.Get(res.ScanID)
	require.NoError(t, err)
	assert.Equal(t, "test-node", scan.SourceNode)

	// same image again comes from the cache
	res, err = a.Analyzer.Analyze(t.Context(), analysis.Input{Image: tu.LeafPNG(t), Source: analysis.SourceCLI})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, static.Calls())
}

func TestNewWithoutHistory(t *testing.T) {
	t.Parallel()

	a, err := New(t.Context(), testSettings(t), Options{Classifier: &tu.StaticClassifier{}})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Store)
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing knowledge file", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t)
		s.Knowledge.Path = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := New(t.Context(), s, Options{Classifier: &tu.StaticClassifier{}})
		require.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t)
		s.Classifier.Backend = "tflite"
		_, err := New(t.Context(), s, Options{})
		require.Error(t, err)
	})

	t.Run("notification without urls", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t)
		s.Notification.Enabled = true
		_, err := New(t.Context(), s, Options{Events: true, Classifier: &tu.StaticClassifier{}})
		require.Error(t, err)
	})
}

func TestLoadResolver(t *testing.T) {
	t.Parallel()

	r, err := LoadResolver(&conf.Settings{})
	require.NoError(t, err)
	assert.Positive(t, r.KnowledgeBase().Len())

}

func TestNewStopsBusWhenConsumerFails(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := testSettings(t)
	s.Cache.Backend = "none"
	s.MQTT.Enabled = true
	s.MQTT.Broker = "not a broker url"
	s.MQTT.Topic = "cropdoc/scans"
	// no URLs, so the notifier cannot be created after MQTT registered
	s.Notification.Enabled = true

	_, err := New(t.Context(), s, Options{Events: true, Classifier: &tu.StaticClassifier{}})
	require.Error(t, err)
}
