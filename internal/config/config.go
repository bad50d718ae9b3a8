package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/August26/tlsprobe-go/internal/model"
)

// Load reads a YAML file onto cfg. Keys absent from the file keep the
// value cfg already had, so callers start from model.DefaultConfig().
// The result is not validated: flags may still override it.
func Load(path string, cfg *model.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func Validate(cfg model.Config) error {
	var errs []error
	if cfg.InputFile == "" {
		errs = append(errs, errors.New("input file is required"))
	}
	if cfg.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", cfg.Concurrency))
	}
	if cfg.TimeoutMs < 1 {
		errs = append(errs, fmt.Errorf("timeout_ms must be >= 1, got %d", cfg.TimeoutMs))
	}
	if cfg.GeoMaxDelayMs < 0 || cfg.GeoTimeoutMs < 0 || cfg.GeoRatePerMinute < 0 {
		errs = append(errs, errors.New("geo settings must not be negative"))
	}
	switch cfg.ReportFormat {
	case "json", "csv":
	default:
		errs = append(errs, fmt.Errorf("unsupported report format: %s", cfg.ReportFormat))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format: %s", cfg.LogFormat))
	}
	return errors.Join(errs...)
}
