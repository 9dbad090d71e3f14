// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "cropdoc")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/cropdoc.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("knowledge.path", "")

	v.SetDefault("classifier.backend", BackendHuggingFace)
	v.SetDefault("classifier.timeout", 30*time.Second)
	v.SetDefault("classifier.topk", 5)
	v.SetDefault("classifier.huggingface.url", "https://api-inference.huggingface.co/models")
	v.SetDefault("classifier.huggingface.model", "Diginsa/Plant-Disease-Detection-Project")
	v.SetDefault("classifier.huggingface.token", "")
	v.SetDefault("classifier.huggingface.ratelimit", 2.0)
	v.SetDefault("classifier.huggingface.burst", 4)
	v.SetDefault("classifier.huggingface.maxretries", 3)
	v.SetDefault("classifier.gemini.apikey", "")
	v.SetDefault("classifier.gemini.model", "gemini-2.5-flash")
	v.SetDefault("classifier.gemini.temperature", 0.0)
	v.SetDefault("classifier.gemini.maxretries", 3)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.debug", false)
	v.SetDefault("webserver.maxuploadsize", "10M")

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "cropdoc.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "")
	v.SetDefault("output.mysql.password", "")
	v.SetDefault("output.mysql.database", "cropdoc")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.postgres.enabled", false)
	v.SetDefault("output.postgres.username", "")
	v.SetDefault("output.postgres.password", "")
	v.SetDefault("output.postgres.database", "cropdoc")
	v.SetDefault("output.postgres.host", "localhost")
	v.SetDefault("output.postgres.port", "5432")
	v.SetDefault("output.postgres.sslmode", "disable")

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.redisurl", "redis://localhost:6379/0")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "cropdoc/diagnoses")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.clientid", "cropdoc")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.minseverity", "High")
	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.cooldown", 30*time.Minute)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.allowedchats", []int64{})

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")
}
