// Package config reads CONTINUITY_* environment variables. Command line
// flags override what is loaded here.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"continuity/internal/powerlevel"
)

const DefaultStatePath = "novel.yaml"

// Config is the process configuration shared by every binary
type Config struct {
	StatePath     string `env:"CONTINUITY_STATE"        envDefault:"novel.yaml"`
	DBPath        string `env:"CONTINUITY_DB"` // empty uses the XDG data directory
	HierarchyFile string `env:"CONTINUITY_HIERARCHIES"`
	Category      string `env:"CONTINUITY_CATEGORY"     envDefault:"cultivation"`
	LogLevel      string `env:"CONTINUITY_LOG_LEVEL"    envDefault:"warn"`
	Editor        string `env:"CONTINUITY_EDITOR"`
	MetricsAddr   string `env:"CONTINUITY_METRICS_ADDR"`

	StaleThreshold int           `env:"CONTINUITY_STALE_THRESHOLD" envDefault:"10"`
	WatchDebounce  time.Duration `env:"CONTINUITY_WATCH_DEBOUNCE"  envDefault:"300ms"`

	AllowRegression            bool `env:"CONTINUITY_ALLOW_REGRESSION"             envDefault:"false"`
	RequireBreakthroughEvent   bool `env:"CONTINUITY_REQUIRE_BREAKTHROUGH_EVENT"   envDefault:"true"`
	MinChaptersForBreakthrough int  `env:"CONTINUITY_MIN_CHAPTERS_PER_BREAKTHROUGH" envDefault:"3"`
	MaxChaptersPerStage        int  `env:"CONTINUITY_MAX_CHAPTERS_PER_STAGE"       envDefault:"50"`
}

// Load reads the configuration from the process environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadFrom reads the configuration from an explicit environment
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.StaleThreshold < 1:
		return fmt.Errorf("CONTINUITY_STALE_THRESHOLD must be at least 1, got %d", c.StaleThreshold)
	case c.MinChaptersForBreakthrough < 0:
		return fmt.Errorf("CONTINUITY_MIN_CHAPTERS_PER_BREAKTHROUGH cannot be negative")
	case c.MaxChaptersPerStage < 1:
		return fmt.Errorf("CONTINUITY_MAX_CHAPTERS_PER_STAGE must be at least 1, got %d", c.MaxChaptersPerStage)
	}
	return nil
}

// StatePath returns the novel state path from CONTINUITY_STATE,
// falling back to DefaultStatePath.
func StatePath() string {
	cfg, err := Load()
	if err != nil || cfg.StatePath == "" {
		return DefaultStatePath
	}
	return cfg.StatePath
}

// Policy returns the progression policy the configuration describes
func (c Config) Policy() powerlevel.Policy {
	return powerlevel.Policy{
		AllowRegression:            c.AllowRegression,
		RequireBreakthroughEvent:   c.RequireBreakthroughEvent,
		MinChaptersForBreakthrough: c.MinChaptersForBreakthrough,
		MaxChaptersPerStage:        c.MaxChaptersPerStage,
	}
}

// Levels builds the power level system, applying the hierarchy override file
func (c Config) Levels(logger *zap.Logger) (*powerlevel.System, error) {
	opts := []powerlevel.Option{
		powerlevel.WithPolicy(c.Policy()),
		powerlevel.WithDefaultCategory(c.Category),
		powerlevel.WithLogger(logger),
	}
	if c.HierarchyFile != "" {
		hs, err := powerlevel.LoadHierarchyFile(c.HierarchyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, powerlevel.WithHierarchies(hs))
	}
	return powerlevel.NewSystem(opts...), nil
}
