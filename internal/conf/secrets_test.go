package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("CROPDOC_TEST_SECRET", "s3cret")

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"literal", "plain-token", "plain-token"},
		{"empty", "", ""},
		{"env", "${CROPDOC_TEST_SECRET}", "s3cret"},
		{"env in text", "Bearer ${CROPDOC_TEST_SECRET}!", "Bearer s3cret!"},
		{"default used", "${CROPDOC_TEST_UNSET:-fallback}", "fallback"},
		{"empty default", "${CROPDOC_TEST_UNSET:-}", ""},
		{"file", "file:" + writeSecret(t, "from-file\n"), "from-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSecret(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSecretErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing env":  "${CROPDOC_TEST_UNSET}",
		"missing file": "file:" + filepath.Join(dir, "nope"),
		"directory":    "file:" + dir,
		"empty file":   "file:" + writeSecret(t, "\n"),
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := resolveSecret(value)
			assert.Error(t, err)
		})
	}
}

func TestLoadResolvesSecrets(t *testing.T) {
	token := writeSecret(t, "123:abc\n")
	t.Setenv("CROPDOC_TEST_MQTT_PASS", "hunter2")

	settings, err := loadTestSettings(t, "telegram:\n  token: file:"+token+"\nmqtt:\n  password: ${CROPDOC_TEST_MQTT_PASS}\n")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", settings.Telegram.Token)
	assert.Equal(t, "hunter2", settings.MQTT.Password)

	_, err = loadTestSettings(t, "telegram:\n  token: ${CROPDOC_TEST_UNSET}\n")
	assert.Error(t, err)
}
