package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo).Module("diagnosis")

	log.Debug("hidden")
	log.Info("visible", String("label", "Tomato___Early_blight"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "module=diagnosis")
	assert.Contains(t, out, "label=Tomato___Early_blight")
	assert.NotContains(t, out, "time=", "console output carries no timestamps")
}

func TestTraceLevelName(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelTrace)

	log.Trace("deep detail")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestSubModuleAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := NewSlogLogger(buf, LogLevelDebug).Module("api").With(String("request_id", "r-1"))
	child := parent.Module("diagnose")

	child.Debug("handled", Float64("confidence", 87.123456), Duration("elapsed", 1500*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "module=api.diagnose")
	assert.Contains(t, out, "request_id=r-1")
	assert.Contains(t, out, "confidence=87.123")
	assert.Contains(t, out, "elapsed=1.5s")
}

func TestWithContextAddsTraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo)

	ctx := WithTraceID(t.Context(), "abc-123")
	log.WithContext(ctx).Info("processing")
	log.WithContext(t.Context()).Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=abc-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cropdoc.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "error"},
	})
	require.NoError(t, err)

	cl.Module("classifier").Info("prediction", String("label", "Potato___Late_blight"))
	cl.Module("datastore").Info("suppressed")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "prediction", entry["msg"])
	assert.Equal(t, "classifier", entry["module"])
	assert.Equal(t, "Potato___Late_blight", entry["label"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"trace", "TRACE"},
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, levelName(parseLogLevel(tt.in)))
		})
	}
}

func TestFanoutRespectsEachLevel(t *testing.T) {
	var info, errs bytes.Buffer
	h := fanout{newTextHandler(&info, slog.LevelInfo), newTextHandler(&errs, slog.LevelError)}
	log := &moduleLogger{module: "mqtt", logger: slog.New(h), level: slog.LevelDebug}

	log.Info("connected")
	log.Error("publish failed")

	assert.Contains(t, info.String(), "connected")
	assert.Contains(t, info.String(), "publish failed")
	assert.NotContains(t, errs.String(), "connected")
	assert.Contains(t, errs.String(), "publish failed")
}

func TestFileWriterCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	w, err := openFileWriter(path)
	require.NoError(t, err)

	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late\n"))
	require.ErrorIs(t, err, os.ErrClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
