package simos

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/simos/service/executor"
	mmemory "github.com/viant/simos/service/messaging/memory"
	"github.com/viant/simos/service/scheduler"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the simulator configuration.
// Zero-valued sections are replaced with their package defaults by LoadConfig.
type Config struct {
	Memory    MemoryConfig     `yaml:"memory"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Executor  executor.Config  `yaml:"executor"`
	Events    mmemory.Config   `yaml:"events"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Log       LogConfig        `yaml:"log"`
	Workload  []Process        `yaml:"workload"`
}

// MemoryConfig defines the managed address space
type MemoryConfig struct {
	TotalSize uint64 `yaml:"totalSize"`
}

// TracingConfig enables the stdout span exporter
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
	Version string `yaml:"version"`
	// Output is a file path; empty writes to stdout
	Output string `yaml:"output"`
}

// LogConfig controls logrus level and formatter
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Process is a workload entry admitted at startup
type Process struct {
	Label string `yaml:"label"`
	Size  uint64 `yaml:"size"`
}

// DefaultConfig returns a Config populated with package defaults
func DefaultConfig() *Config {
	return &Config{
		Memory:    MemoryConfig{TotalSize: 8192},
		Scheduler: scheduler.DefaultConfig(),
		Executor:  executor.DefaultConfig(),
		Events:    mmemory.DefaultConfig(),
		Tracing:   TracingConfig{Service: "simos", Version: "dev"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML config from any afs supported URL (file://, mem://, ...).
// Values missing from the document keep their defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Memory.TotalSize == 0 {
		errs = append(errs, fmt.Errorf("memory.totalSize must be > 0"))
	}
	if c.Scheduler.DispatchYield < 0 {
		errs = append(errs, fmt.Errorf("scheduler.dispatchYield must be >= 0"))
	}
	if c.Executor.MinDuration < 0 || c.Executor.MaxDuration < c.Executor.MinDuration {
		errs = append(errs, fmt.Errorf("executor duration range [%v, %v] is invalid", c.Executor.MinDuration, c.Executor.MaxDuration))
	}
	if c.Events.QueueBuffer <= 0 {
		errs = append(errs, fmt.Errorf("events.queueBuffer must be > 0"))
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}
	for i, process := range c.Workload {
		if process.Label == "" || process.Size == 0 {
			errs = append(errs, fmt.Errorf("workload[%d]: label and size are required", i))
		}
	}
	return errors.Join(errs...)
}

// ConfigureLogger applies the log section to the standard logrus logger
func (c *Config) ConfigureLogger() error {
	logger := logrus.StandardLogger()
	if c.Log.Level != "" {
		level, err := logrus.ParseLevel(c.Log.Level)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
