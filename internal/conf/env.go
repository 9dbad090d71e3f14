// env.go - Environment variable configuration and validation for cropdoc
package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every automatically bound environment variable.
const EnvPrefix = "CROPDOC"

// envBinding holds metadata for explicit environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns bindings whose variable names do not follow the
// automatic CROPDOC_SECTION_KEY scheme.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"classifier.huggingface.token", "CROPDOC_HF_TOKEN", nil},
		{"classifier.huggingface.token", "HF_TOKEN", nil},
		{"classifier.gemini.apikey", "CROPDOC_GEMINI_API_KEY", nil},
		{"classifier.gemini.apikey", "GEMINI_API_KEY", nil},
		{"classifier.backend", "CROPDOC_BACKEND", validateEnvBackend},
		{"telegram.token", "CROPDOC_TELEGRAM_TOKEN", nil},
		{"telemetry.dsn", "CROPDOC_SENTRY_DSN", nil},
		{"mqtt.broker", "CROPDOC_MQTT_BROKER", validateEnvURL},
		{"webserver.port", "CROPDOC_PORT", validateEnvPort},
		{"debug", "CROPDOC_DEBUG", validateEnvBool},
	}
}

// bindEnvVars enables automatic env lookup and the explicit bindings above.
// Invalid values are collected and returned together.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BindEnv with several names for one key picks the first one that is set,
	// so group the names by key before binding.
	var (
		order  []string
		byKey  = make(map[string][]string)
		checks = make(map[string]func(string) error)
	)
	for _, b := range getEnvBindings() {
		if _, ok := byKey[b.ConfigKey]; !ok {
			order = append(order, b.ConfigKey)
		}
		byKey[b.ConfigKey] = append(byKey[b.ConfigKey], b.EnvVar)
		if b.Validate != nil {
			checks[b.EnvVar] = b.Validate
		}
	}

	var warnings []string
	for _, key := range order {
		if err := v.BindEnv(append([]string{key}, byKey[key]...)...); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", key, err))
		}
	}

	for envVar, validate := range checks {
		if value, ok := lookupEnv(envVar); ok && value != "" {
			if err := validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", envVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendHuggingFace, BackendGemini:
		return nil
	default:
		return fmt.Errorf("must be one of: %s, %s", BackendHuggingFace, BackendGemini)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must include scheme and host")
	}
	return nil
}
