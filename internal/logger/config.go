package logger

import (
	"fmt"
	"time"
)

const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "logs/cropdoc.log"
)

// LoggingConfig is the logging section of the application settings.
// Console output is plain text on stderr; file output is JSON lines.
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" json:"default_level" mapstructure:"default_level"`
	Timezone     string            `yaml:"timezone" json:"timezone" mapstructure:"timezone"` // Local, UTC or an IANA name
	Console      *ConsoleOutput    `yaml:"console" json:"console" mapstructure:"console"`
	FileOutput   *FileOutput       `yaml:"file_output" json:"file_output" mapstructure:"file_output"`
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels" mapstructure:"module_levels"`
}

type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// setDefaults fills missing sections. The console is on by default, the
// log file is off.
func (c *LoggingConfig) setDefaults() {
	if c.DefaultLevel == "" {
		c.DefaultLevel = DefaultLogLevel
	}
	if c.Console == nil {
		c.Console = &ConsoleOutput{Enabled: true, Level: c.DefaultLevel}
	}
	if c.FileOutput == nil {
		c.FileOutput = &FileOutput{Path: DefaultLogPath, Level: c.DefaultLevel}
	}
}

func (c *LoggingConfig) location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	tz, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", c.Timezone, err)
	}
	return tz, nil
}
