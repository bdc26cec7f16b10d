package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of jobs dispatched per wave.
const DefaultBatchSize = 6

// ErrNoTarget is returned when a run has neither an organization to clone
// from nor a local path to scan.
var ErrNoTarget = errors.New("either --company-name or --path must be supplied")

// Options is the immutable configuration of one run.
type Options struct {
	// CompanyName is a GitHub organization. When set, all of its
	// repositories are cloned into Path before scanning.
	CompanyName string
	// Path is the root directory holding the repositories to scan.
	Path string
	// OutputPath receives one artifact per scanned repository plus the
	// shared error log. Defaults to <Path>/scanOutput.
	OutputPath string
	// NoRecurse scans Path itself as a single repository instead of
	// discovering repositories nested one level down.
	NoRecurse bool
	// BatchSize caps how many clone or scan jobs run concurrently.
	BatchSize int
}

// Resolve validates the options and fills in defaults. pathGiven reports
// whether the operator supplied --path explicitly, which is what decides
// the no-target error.
func (o *Options) Resolve(pathGiven bool) error {
	if o.CompanyName == "" && !pathGiven {
		return ErrNoTarget
	}
	if o.Path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		o.Path = wd
	}
	abs, err := filepath.Abs(o.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	o.Path = abs
	if o.OutputPath == "" {
		o.OutputPath = filepath.Join(o.Path, "scanOutput")
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return nil
}

// Scanner defines a pluggable scanner command. The target directory is
// appended to Command as its final argument.
type Scanner struct {
	Name       string   `yaml:"name"`
	PreCommand []string `yaml:"pre_command"`
	Command    []string `yaml:"command"`
	EnvVars    []string `yaml:"env"`
	Disable    bool     `yaml:"disable"`
}

type Config struct {
	Scanners []Scanner `yaml:"scanners"`
}

// DefaultConfig is used when no scanner configuration file exists.
func DefaultConfig() *Config {
	return &Config{
		Scanners: []Scanner{
			{Name: "trufflehog", Command: []string{"trufflehog", "filesystem", "--json"}},
		},
	}
}

// Load reads a scanner configuration, dropping disabled entries. A missing
// file yields DefaultConfig rather than an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	var active []Scanner
	for _, sc := range cfg.Scanners {
		if sc.Disable {
			continue
		}
		active = append(active, sc)
	}
	cfg.Scanners = active
	if len(cfg.Scanners) == 0 {
		return nil, fmt.Errorf("no enabled scanners in %s", path)
	}
	return &cfg, nil
}
