// Package config holds the run configuration and its validation. All
// configuration errors are fatal: they are reported before any image pair
// is processed.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"section-aligner/internal/search"
)

// Defaults matching the common use case of adjacent histological sections.
const (
	DefaultStep      = 2
	DefaultMaxChange = 20
	DefaultMinScale  = 0.95
	DefaultMaxScale  = 1.05
)

// Config is the immutable per-run configuration.
type Config struct {
	ReferenceDir string
	TargetDir    string
	OutputDir    string // empty: derived from the target directory name
	LogDir       string // empty: current working directory

	ReferenceThreshold int
	TargetThreshold    int
	Step               int
	MaxChange          int
	Bounds             search.Bounds

	Workers          int // 0: one per CPU
	SuppressOverlays bool
	Verbose          bool
}

// Default returns a Config with the default schedule and scale bounds.
// Directories and initial thresholds have no sensible defaults and must be
// provided.
func Default() Config {
	return Config{
		ReferenceThreshold: -1,
		TargetThreshold:    -1,
		Step:               DefaultStep,
		MaxChange:          DefaultMaxChange,
		Bounds:             search.Bounds{Min: DefaultMinScale, Max: DefaultMaxScale},
	}
}

// Validate checks the whole configuration. The first problem found is
// returned; nothing is processed when it is non-nil.
func (c *Config) Validate() error {
	if c.ReferenceDir == "" {
		return fmt.Errorf("config: reference directory is required")
	}
	if c.TargetDir == "" {
		return fmt.Errorf("config: target directory is required")
	}
	if err := checkDir(c.ReferenceDir); err != nil {
		return fmt.Errorf("config: reference directory: %w", err)
	}
	if err := checkDir(c.TargetDir); err != nil {
		return fmt.Errorf("config: target directory: %w", err)
	}

	refAbs, err := filepath.Abs(c.ReferenceDir)
	if err != nil {
		return fmt.Errorf("config: reference directory: %w", err)
	}
	tgtAbs, err := filepath.Abs(c.TargetDir)
	if err != nil {
		return fmt.Errorf("config: target directory: %w", err)
	}
	if refAbs == tgtAbs {
		return fmt.Errorf("config: reference and target directories must differ")
	}

	if c.ReferenceThreshold < 0 || c.ReferenceThreshold > 255 {
		return fmt.Errorf("config: reference threshold must be in [0,255], got %d", c.ReferenceThreshold)
	}
	if c.TargetThreshold < 0 || c.TargetThreshold > 255 {
		return fmt.Errorf("config: target threshold must be in [0,255], got %d", c.TargetThreshold)
	}

	if err := c.SearchConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Bounds.Min < 0 {
		return fmt.Errorf("config: lower scale bound must not be negative, got %v", c.Bounds.Min)
	}
	if c.Bounds.Min >= c.Bounds.Max {
		return fmt.Errorf("config: upper scale bound must be greater than lower bound, got %v..%v",
			c.Bounds.Min, c.Bounds.Max)
	}

	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}

	return nil
}

// ResolvedOutputDir returns the configured output directory, or the default
// ./Alignments/<target-base>_Alignments when none was set.
func (c *Config) ResolvedOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	base := filepath.Base(filepath.Clean(c.TargetDir))
	return filepath.Join("Alignments", base+"_Alignments")
}

// SearchConfig returns the escalation schedule portion of the configuration.
func (c *Config) SearchConfig() search.Config {
	return search.Config{Step: c.Step, MaxChange: c.MaxChange}
}

// BaseThresholds returns the initial threshold pair.
func (c *Config) BaseThresholds() search.ThresholdPair {
	return search.ThresholdPair{Reference: c.ReferenceThreshold, Target: c.TargetThreshold}
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
