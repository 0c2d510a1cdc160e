// Package config holds the settings shared by the frep command and its
// pipeline, loaded from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/frep/pkg/engine"
	"github.com/chazu/frep/pkg/eval"
	"github.com/chazu/frep/pkg/kernel/sdfx"
	"github.com/chazu/frep/pkg/tessellate"
)

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds every tunable of a run.
type Config struct {
	// Policy is the domain policy of point evaluation: "error" or "nan".
	Policy  string `toml:"policy"`
	Workers int    `toml:"workers"`

	EvalTimeout Duration `toml:"eval_timeout"`
	// Simplify runs the simplifier on every shape as it is defined.
	Simplify bool `toml:"simplify"`

	MeshCells        int     `toml:"mesh_cells"`
	SearchHalfExtent float64 `toml:"search_half_extent"`
	BoundsDepth      int     `toml:"bounds_depth"`

	LogLevel string `toml:"log_level"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Policy:           eval.PolicyError.String(),
		Workers:          runtime.NumCPU(),
		EvalTimeout:      Duration{engine.DefaultTimeout},
		MeshCells:        sdfx.DefaultMeshCells,
		SearchHalfExtent: tessellate.DefaultHalfExtent,
		BoundsDepth:      tessellate.DefaultDepth,
		LogLevel:         "info",
	}
}

// Load reads path over the defaults. Keys the file leaves out keep their
// default value; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("config: %s: %s", path, strict.String())
		}
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores c at path in TOML form.
func (c Config) Write(path string) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate rejects values no run could use.
func (c Config) Validate() error {
	var errs []error
	if _, err := eval.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.EvalTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout))
	}
	if c.MeshCells < 2 {
		errs = append(errs, fmt.Errorf("mesh_cells must be at least 2, got %d", c.MeshCells))
	}
	if !(c.SearchHalfExtent > 0) {
		errs = append(errs, fmt.Errorf("search_half_extent must be positive, got %v", c.SearchHalfExtent))
	}
	if c.BoundsDepth < 0 || c.BoundsDepth > 12 {
		errs = append(errs, fmt.Errorf("bounds_depth must be within 0..12, got %d", c.BoundsDepth))
	}
	return errors.Join(errs...)
}

// DomainPolicy returns the parsed Policy.
func (c Config) DomainPolicy() (eval.DomainPolicy, error) {
	return eval.ParsePolicy(c.Policy)
}

// Level returns the parsed LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// EngineOptions returns the engine settings of c.
func (c Config) EngineOptions(log *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithTimeout(c.EvalTimeout.Duration),
		engine.WithSimplify(c.Simplify),
		engine.WithLogger(log),
	}
}

// TessellateOptions returns the meshing settings of c.
func (c Config) TessellateOptions(log *slog.Logger) []tessellate.Option {
	return []tessellate.Option{
		tessellate.WithHalfExtent(c.SearchHalfExtent),
		tessellate.WithDepth(c.BoundsDepth),
		tessellate.WithWorkers(c.Workers),
		tessellate.WithLogger(log),
	}
}
