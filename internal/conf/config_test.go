package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestSettings(t *testing.T, yaml string) (*Settings, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	v := viper.New()
	require.NoError(t, initViper(v, path))
	return unmarshalSettings(v)
}

func TestDefaultsApplyWithEmptyConfig(t *testing.T) {
	settings, err := loadTestSettings(t, "{}\n")
	require.NoError(t, err)

	assert.Equal(t, BackendHuggingFace, settings.Classifier.Backend)
	assert.Equal(t, "Diginsa/Plant-Disease-Detection-Project", settings.Classifier.HuggingFace.Model)
	assert.Equal(t, 30*time.Second, settings.Classifier.Timeout)
	assert.Equal(t, 5, settings.Classifier.TopK)
	assert.Equal(t, "8080", settings.WebServer.Port)
	assert.True(t, settings.Output.SQLite.Enabled)
	assert.Equal(t, CacheMemory, settings.Cache.Backend)
	assert.Equal(t, 15*time.Minute, settings.Cache.TTL)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestEmbeddedDefaultConfigIsValid(t *testing.T) {
	data, err := configFiles.ReadFile("config.yaml")
	require.NoError(t, err)

	settings, err := loadTestSettings(t, string(data))
	require.NoError(t, err)

	assert.Equal(t, "cropdoc", settings.Main.Name)
	assert.Equal(t, "warn", settings.Logging.ModuleLevels["datastore"])
	assert.Equal(t, "High", settings.Notification.MinSeverity)
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	settings, err := loadTestSettings(t, `
classifier:
  backend: gemini
  timeout: 5s
  gemini:
    model: gemini-1.5-pro
output:
  sqlite:
    enabled: false
  postgres:
    enabled: true
    host: db.internal
telegram:
  enabled: true
  token: "123:abc"
  allowedchats: [42, 7]
`)
	require.NoError(t, err)

	assert.Equal(t, BackendGemini, settings.Classifier.Backend)
	assert.Equal(t, 5*time.Second, settings.Classifier.Timeout)
	assert.Equal(t, "gemini-1.5-pro", settings.Classifier.Gemini.Model)
	assert.True(t, settings.Output.Postgres.Enabled)
	assert.Equal(t, "db.internal", settings.Output.Postgres.Host)
	assert.Equal(t, []int64{42, 7}, settings.Telegram.AllowedChats)
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("CROPDOC_HF_TOKEN", "hf_secret")
	t.Setenv("CROPDOC_WEBSERVER_PORT", "9090")

	settings, err := loadTestSettings(t, "{}\n")
	require.NoError(t, err)

	assert.Equal(t, "hf_secret", settings.Classifier.HuggingFace.Token)
	assert.Equal(t, "9090", settings.WebServer.Port)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown backend", "classifier:\n  backend: onnx\n", "classifier.backend"},
		{"zero topk", "classifier:\n  topk: 0\n", "classifier.topk"},
		{"bad port", "webserver:\n  port: http\n", "webserver.port"},
		{"bad upload size", "webserver:\n  maxuploadsize: lots\n", "webserver.maxuploadsize"},
		{"two databases", "output:\n  mysql:\n    enabled: true\n", "only one of"},
		{"redis url", "cache:\n  backend: redis\n  redisurl: http://x\n", "cache.redisurl"},
		{"notification without urls", "notification:\n  enabled: true\n", "notification.urls"},
		{"notification severity", "notification:\n  enabled: true\n  urls: [\"generic://x\"]\n  minseverity: Low\n", "notification.minseverity"},
		{"telegram token", "telegram:\n  enabled: true\n", "telegram.token"},
		{"mqtt broker", "mqtt:\n  enabled: true\n  broker: nowhere\n", "mqtt.broker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTestSettings(t, tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cropdoc")
	v := viper.New()
	setDefaultConfig(v)

	require.NoError(t, createDefaultConfig(v, dir))

	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cropdoc/diagnoses", v.GetString("mqtt.topic"))
}

func TestParseBodyLimit(t *testing.T) {
	size, err := parseBodyLimit("10M")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	_, err = parseBodyLimit("10X")
	require.Error(t, err)
}
