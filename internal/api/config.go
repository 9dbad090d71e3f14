// Package api provides the HTTP server for cropdoc. The JSON endpoints live
// in the v2 subpackage.
package api

import (
	"errors"
	"net"
	"time"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

const (
	DefaultPort            = "8080"
	DefaultBodyLimit       = "10M"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second // remote backends may cold start
	DefaultIdleTimeout     = 2 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Config controls the listener and the echo instance.
type Config struct {
	Host           string // empty binds all interfaces
	Port           string
	AllowedOrigins []string
	BodyLimit      string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Debug bool
}

func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		AllowedOrigins:  []string{"*"},
		BodyLimit:       DefaultBodyLimit,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// ConfigFromSettings overlays the webserver section of settings on the defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	ws := settings.WebServer
	if ws.Port != "" {
		cfg.Port = ws.Port
	}
	if ws.MaxUploadSize != "" {
		cfg.BodyLimit = ws.MaxUploadSize
	}
	cfg.Debug = ws.Debug || settings.Debug
	return cfg
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.BodyLimit == "" {
		errs = append(errs, errors.New("body limit is required"))
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("read and write timeouts must be positive"))
	}
	return errors.Join(errs...)
}

// Address is the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}
