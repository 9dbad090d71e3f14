package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/logger"
)

const (
	secretFilePrefix  = "file:"
	maxSecretFileSize = 64 * 1024
)

// secretFields lists the settings that may hold a secret reference.
func secretFields(s *Settings) map[string]*string {
	return map[string]*string{
		"classifier.huggingface.token": &s.Classifier.HuggingFace.Token,
		"classifier.gemini.apikey":     &s.Classifier.Gemini.APIKey,
		"telegram.token":               &s.Telegram.Token,
		"mqtt.password":                &s.MQTT.Password,
		"output.mysql.password":        &s.Output.MySQL.Password,
		"output.postgres.password":     &s.Output.Postgres.Password,
		"cache.redisurl":               &s.Cache.RedisURL,
		"telemetry.dsn":                &s.Telemetry.DSN,
	}
}

// resolveSecrets replaces secret references in place. A value of the form
// "file:/run/secrets/name" is replaced by the file content, and ${VAR} or
// ${VAR:-default} are expanded from the environment. Plain values are kept.
func resolveSecrets(s *Settings) error {
	var errs []error
	for key, field := range secretFields(s) {
		value, err := resolveSecret(*field)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*field = value
	}
	if err := errors.Join(errs...); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "resolve_secrets").
			Build()
	}
	return nil
}

func resolveSecret(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, secretFilePrefix); ok {
		return readSecretFile(path)
	}
	if !strings.Contains(value, "${") {
		return value, nil
	}
	return expandSecret(value)
}

// expandSecret expands ${VAR} and ${VAR:-default}. A variable without a
// default must be set.
func expandSecret(s string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if !hasDefault {
			missing = append(missing, name)
		}
		return def
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// readSecretFile reads a mounted secret, dropping trailing newlines.
func readSecretFile(path string) (string, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path %s is not a regular file", path)
	}
	if info.Size() > maxSecretFileSize {
		return "", fmt.Errorf("secret file %s is larger than %d bytes", path, maxSecretFileSize)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("conf").Warn("secret file is readable by group or others",
			logger.String("path", path),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret file: %w", err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}
