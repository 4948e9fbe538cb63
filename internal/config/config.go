// Package config loads and validates the rangescan configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/logging"
)

// Config represents the complete rangescan configuration
type Config struct {
	// Scanning configuration
	Scanning ScanningConfig `yaml:"scanning" json:"scanning"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging"`

	// Metrics endpoint configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Reverse DNS configuration
	Resolve ResolveConfig `yaml:"resolve" json:"resolve"`
}

// ScanningConfig holds scanning-related settings
type ScanningConfig struct {
	// Number of concurrent scanning workers
	Workers int `yaml:"workers" json:"workers" validate:"min=1"`

	// Connect timeout per target. Values need a unit ("500ms").
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=1ms"`

	// Ports scanned in addition to the default table
	ExtraPorts []int `yaml:"extra_ports" json:"extra_ports" validate:"dive,min=0,max=65535"`

	// Scan only ExtraPorts, skipping the default table
	OnlyPorts bool `yaml:"only_ports" json:"only_ports"`

	// Refuse scans larger than this many targets (0 = unlimited)
	MaxTargets int `yaml:"max_targets" json:"max_targets" validate:"min=0"`

	// Scans allowed to run at once in one process
	MaxConcurrentScans int `yaml:"max_concurrent_scans" json:"max_concurrent_scans" validate:"min=1"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	// Listen address, empty disables the endpoint
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" validate:"omitempty,hostname_port"`

	// Interval for refreshing process metrics
	UpdateInterval time.Duration `yaml:"update_interval" json:"update_interval" validate:"gt=0"`
}

// ResolveConfig holds reverse DNS settings
type ResolveConfig struct {
	// DNS server in host:port form, empty means the system resolver
	Server string `yaml:"server" json:"server" validate:"omitempty,hostname_port"`

	// Per-query timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=1ms"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			Workers:            200,
			Timeout:            500 * time.Millisecond,
			ExtraPorts:         nil,
			OnlyPorts:          false,
			MaxTargets:         1 << 24,
			MaxConcurrentScans: 1,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{
			ListenAddr:     "",
			UpdateInterval: 15 * time.Second,
		},
		Resolve: ResolveConfig{
			Server:  "",
			Timeout: 2 * time.Second,
		},
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.WrapConfigError(errors.CodeFilePermission, "failed to read config file", err)
		}
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	// JSON is a subset of YAML, so both extensions use the same decoder
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config %s", filepath.Base(path)), err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := configValidator().Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok || len(verrs) == 0 {
			return errors.WrapConfigError(errors.CodeValidation, "invalid configuration", err)
		}
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		return errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("%s must satisfy %s", field, strings.TrimSuffix(fe.Tag()+"="+fe.Param(), "=")),
			field, fe.Value())
	}

	validLogLevels := map[logging.LogLevel]bool{
		logging.LevelDebug: true,
		logging.LevelInfo:  true,
		logging.LevelWarn:  true,
		logging.LevelError: true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.ErrConfigInvalid("logging.level", c.Logging.Level)
	}

	validLogFormats := map[logging.LogFormat]bool{
		logging.FormatText: true,
		logging.FormatJSON: true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.ErrConfigInvalid("logging.format", c.Logging.Format)
	}

	return nil
}

// IsMetricsEnabled returns true if the metrics endpoint should be served
func (c *Config) IsMetricsEnabled() bool {
	return c.Metrics.ListenAddr != ""
}
