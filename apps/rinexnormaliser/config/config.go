// The config package loads the configuration of the rinexnormaliser.
//
// The config file is JSON unless its name ends ".yaml" or ".yml", for
// example:
//
//	{
//	    "input_directory": "incoming",
//	    "output_directory": "normalised",
//	    "index_file": "normaliser.db",
//	    "schedule": "@every 5m",
//	    "strict": false,
//	    "timeout_seconds": 30,
//	    "metrics_address": "localhost:9100",
//	    "event_log_directory": "logs"
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron"
	"gopkg.in/yaml.v3"
)

// DefaultSchedule is the cron schedule used when the config doesn't give one.
const DefaultSchedule = "@every 1m"

// DefaultTimeoutSeconds is the time allowed to read one input file when the
// config doesn't give one.
const DefaultTimeoutSeconds = 60

// Format is the format of a config file.
type Format int

const (
	JSON Format = iota
	YAML
)

type Config struct {
	InputDirectory    string `json:"input_directory" yaml:"input_directory" validate:"required"`
	OutputDirectory   string `json:"output_directory" yaml:"output_directory" validate:"required,nefield=InputDirectory"`
	IndexFile         string `json:"index_file" yaml:"index_file" validate:"required"`
	Schedule          string `json:"schedule" yaml:"schedule" validate:"cronspec"`
	Strict            bool   `json:"strict" yaml:"strict"`
	TimeoutSeconds    int    `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0,lte=3600"`
	MetricsAddress    string `json:"metrics_address" yaml:"metrics_address" validate:"omitempty,hostname_port"`
	EventLogDirectory string `json:"event_log_directory" yaml:"event_log_directory"`
}

// Timeout returns the time allowed to read one input file.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FormatOf returns the format of the named config file, judged by its
// extension.
func FormatOf(fileName string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// GetConfig gets the config from the given file.
func GetConfig(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, fmt.Errorf("cannot open config file: %w", err)
	}
	defer file.Close()

	return getConfigFromReader(file, FormatOf(configFile))
}

// getConfigFromReader gets the config from the given reader.
func getConfigFromReader(configReader io.Reader, format Format) (*Config, error) {

	data, errRead := io.ReadAll(configReader)
	if errRead != nil {
		slog.Error("error reading config file", "error", errRead)
		return nil, errRead
	}

	config, parseError := parseConfigFromBytes(data, format)
	if parseError != nil {
		slog.Error("not a valid config file", "error", parseError)
		return nil, parseError
	}

	return config, nil
}

// parseConfigFromBytes parses and validates the config, filling in the
// defaults.
func parseConfigFromBytes(data []byte, format Format) (*Config, error) {
	var config Config
	var err error
	if format == YAML {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, err
	}

	if len(config.Schedule) == 0 {
		config.Schedule = DefaultSchedule
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = DefaultTimeoutSeconds
	}

	validate, err := newValidator()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// newValidator returns a validator that also understands the "cronspec"
// tag, which accepts any schedule that the cron package accepts.
func newValidator() (*validator.Validate, error) {
	validate := validator.New()
	err := validate.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.Parse(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return validate, nil
}
