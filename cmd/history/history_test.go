package history

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/datastore"
)

func sqliteSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "history.db")
	return settings
}

func seed(t *testing.T, settings *conf.Settings) {
	t.Helper()
	store := datastore.New(settings)
	require.NoError(t, store.Open())
	defer func() { require.NoError(t, store.Close()) }()

	now := time.Now()
	for i, s := range []struct{ crop, disease, status string }{
		{"Tomato", "Early Blight", "DISEASED"},
		{"Tomato", "Early Blight", "DISEASED"},
		{"Apple", "Healthy", "HEALTHY"},
	} {
		require.NoError(t, store.Save(&datastore.Scan{
			CreatedAt:  now.Add(time.Duration(i) * time.Minute),
			Crop:       s.crop,
			Disease:    s.disease,
			Status:     s.status,
			Confidence: 88.5,
		}))
	}
}

func run(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListText(t *testing.T) {
	settings := sqliteSettings(t)
	seed(t, settings)

	out, err := run(t, settings, "--crop", "Tomato")
	require.NoError(t, err)
	assert.Contains(t, out, "CROP")
	assert.Contains(t, out, "Early Blight")
	assert.NotContains(t, out, "Apple")
	assert.Contains(t, out, "2 of 2 scans")
}

func TestListJSON(t *testing.T) {
	settings := sqliteSettings(t)
	settings.Output.JSON = true
	seed(t, settings)

	out, err := run(t, settings, "--status", "healthy")
	require.NoError(t, err)

	var got listing
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(1), got.Total)
	require.Len(t, got.Scans, 1)
	assert.Equal(t, "Apple", got.Scans[0].Crop)
}

func TestStats(t *testing.T) {
	settings := sqliteSettings(t)
	seed(t, settings)

	out, err := run(t, settings, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total scans: 3")
	assert.Contains(t, out, "Most frequent diseases:")
	assert.Contains(t, out, "Early Blight")
}

func TestNoDatabase(t *testing.T) {
	_, err := run(t, &conf.Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scan history database")
}

func TestTargetSettings(t *testing.T) {
	settings := sqliteSettings(t)
	settings.Output.MySQL.Host = "db"

	target, err := targetSettings(settings, "MySQL")
	require.NoError(t, err)
	assert.False(t, target.Output.SQLite.Enabled)
	assert.True(t, target.Output.MySQL.Enabled)
	assert.Equal(t, "db", target.Output.MySQL.Host)
	assert.True(t, settings.Output.SQLite.Enabled, "source settings must not change")

	_, err = targetSettings(settings, "sqlite")
	require.Error(t, err)

	_, err = targetSettings(settings, "oracle")
	require.Error(t, err)
}

func TestMigrateRequiresTarget(t *testing.T) {
	_, err := run(t, sqliteSettings(t), "migrate")
	require.Error(t, err)
}
