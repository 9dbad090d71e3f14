// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateClassifierSettings(&s.Classifier) },
		validateWebServerSettings,
		validateOutputSettings,
		func(s *Settings) error { return validateCacheSettings(&s.Cache) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateNotificationSettings(&s.Notification) },
		func(s *Settings) error { return validateTelegramSettings(&s.Telegram) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateClassifierSettings(c *ClassifierSettings) error {
	switch c.Backend {
	case BackendHuggingFace:
		if _, err := url.ParseRequestURI(c.HuggingFace.URL); err != nil {
			return fmt.Errorf("classifier.huggingface.url is invalid: %w", err)
		}
		if c.HuggingFace.Model == "" {
			return fmt.Errorf("classifier.huggingface.model must be set")
		}
		if c.HuggingFace.RateLimit < 0 {
			return fmt.Errorf("classifier.huggingface.ratelimit must not be negative")
		}
	case BackendGemini:
		if c.Gemini.Model == "" {
			return fmt.Errorf("classifier.gemini.model must be set")
		}
	default:
		return fmt.Errorf("classifier.backend must be %q or %q, got %q", BackendHuggingFace, BackendGemini, c.Backend)
	}

	if c.TopK < 1 {
		return fmt.Errorf("classifier.topk must be at least 1, got %d", c.TopK)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive")
	}
	return nil
}

func validateWebServerSettings(s *Settings) error {
	if !s.WebServer.Enabled {
		return nil
	}
	port, err := strconv.Atoi(s.WebServer.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a number between 1 and 65535, got %q", s.WebServer.Port)
	}
	if s.WebServer.MaxUploadSize != "" {
		if _, err := parseBodyLimit(s.WebServer.MaxUploadSize); err != nil {
			return fmt.Errorf("webserver.maxuploadsize: %w", err)
		}
	}
	return nil
}

// parseBodyLimit accepts the same size syntax as echo's BodyLimit middleware.
func parseBodyLimit(limit string) (int64, error) {
	var size int64
	var unit string
	if _, err := fmt.Sscanf(strings.ToUpper(limit), "%d%s", &size, &unit); err != nil {
		return 0, fmt.Errorf("invalid size %q", limit)
	}
	switch unit {
	case "B", "K", "M", "G", "KB", "MB", "GB":
	default:
		return 0, fmt.Errorf("invalid size unit in %q", limit)
	}
	if size <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", limit)
	}
	return size, nil
}

func validateOutputSettings(s *Settings) error {
	enabled := 0
	for _, on := range []bool{s.Output.SQLite.Enabled, s.Output.MySQL.Enabled, s.Output.Postgres.Enabled} {
		if on {
			enabled++
		}
	}
	if enabled > 1 {
		return fmt.Errorf("only one of output.sqlite, output.mysql and output.postgres can be enabled")
	}
	if s.Output.SQLite.Enabled && s.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must be set")
	}
	if s.Output.MySQL.Enabled && (s.Output.MySQL.Host == "" || s.Output.MySQL.Database == "") {
		return fmt.Errorf("output.mysql requires host and database")
	}
	if s.Output.Postgres.Enabled && (s.Output.Postgres.Host == "" || s.Output.Postgres.Database == "") {
		return fmt.Errorf("output.postgres requires host and database")
	}
	return nil
}

func validateCacheSettings(c *CacheSettings) error {
	switch c.Backend {
	case CacheMemory:
	case CacheRedis:
		if _, err := url.Parse(c.RedisURL); err != nil || !strings.HasPrefix(c.RedisURL, "redis") {
			return fmt.Errorf("cache.redisurl must be a redis:// or rediss:// url")
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheMemory, CacheRedis, c.Backend)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

func validateMQTTSettings(m *MQTTSettings) error {
	if !m.Enabled {
		return nil
	}
	if err := validateEnvURL(m.Broker); err != nil {
		return fmt.Errorf("mqtt.broker: %w", err)
	}
	if m.Topic == "" {
		return fmt.Errorf("mqtt.topic must be set when mqtt is enabled")
	}
	return nil
}

func validateNotificationSettings(n *NotificationSettings) error {
	if !n.Enabled {
		return nil
	}
	if len(n.URLs) == 0 {
		return fmt.Errorf("notification.urls must contain at least one url when notifications are enabled")
	}
	switch n.MinSeverity {
	case "Medium", "High", "Very High":
	default:
		return fmt.Errorf("notification.minseverity must be Medium, High or Very High, got %q", n.MinSeverity)
	}
	return nil
}

func validateTelegramSettings(t *TelegramSettings) error {
	if t.Enabled && t.Token == "" {
		return fmt.Errorf("telegram.token must be set when the telegram bot is enabled")
	}
	return nil
}
