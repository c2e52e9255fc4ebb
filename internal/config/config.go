package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/lifecycle"
	"github.com/E4Saber/stock-analyzer-sub000/internal/policy"
	"github.com/E4Saber/stock-analyzer-sub000/internal/regime"
	"github.com/E4Saber/stock-analyzer-sub000/internal/reliability"
	"github.com/E4Saber/stock-analyzer-sub000/internal/scorer"
	"github.com/E4Saber/stock-analyzer-sub000/internal/weights"
)

// PipelineConfig bounds the per-cycle fan-out.
type PipelineConfig struct {
	// Workers is the per-symbol scoring concurrency.
	Workers int `yaml:"workers"`
	// SymbolTimeoutSeconds is the per-symbol time budget; a symbol
	// exceeding it is reported stale for the cycle, never retried inline.
	SymbolTimeoutSeconds float64 `yaml:"symbol_timeout_seconds"`
}

// SymbolTimeout returns the per-symbol budget as a duration.
func (p PipelineConfig) SymbolTimeout() time.Duration {
	return time.Duration(p.SymbolTimeoutSeconds * float64(time.Second))
}

// OutputConfig wires the downstream collaborators.
type OutputConfig struct {
	// ArtifactsDir receives per-cycle JSON snapshots; empty disables.
	ArtifactsDir string `yaml:"artifacts_dir"`
	// KeepCycles bounds retained cycle artifacts; 0 keeps everything.
	KeepCycles int `yaml:"keep_cycles"`
	// PostgresDSN enables the storage-collaborator sink; empty disables.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ServerConfig configures the read-only ops HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RatePerSecond and Burst bound inbound request rates.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// Engine is the full engine configuration: every table and threshold the
// components consume, expressed as data so it can be tuned without a
// redeploy. Loaded once per cycle and treated as immutable for the cycle.
type Engine struct {
	Scorers     *scorer.Config       `yaml:"scorers"`
	Regime      *regime.Config       `yaml:"regime"`
	Weights     *weights.Config      `yaml:"weights"`
	Tiers       composite.Thresholds `yaml:"tiers"`
	Reliability *reliability.Config  `yaml:"reliability"`
	Lifecycle   *lifecycle.Config    `yaml:"lifecycle"`
	Policy      *policy.Config       `yaml:"policy"`
	Pipeline    PipelineConfig       `yaml:"pipeline"`
	Output      OutputConfig         `yaml:"output"`
	Server      ServerConfig         `yaml:"server"`
}

// Default returns the fully built-in engine configuration.
func Default() *Engine {
	return &Engine{
		Scorers:     scorer.DefaultConfig(),
		Regime:      regime.DefaultConfig(),
		Weights:     weights.DefaultConfig(),
		Tiers:       composite.DefaultThresholds(),
		Reliability: reliability.DefaultConfig(),
		Lifecycle:   lifecycle.DefaultConfig(),
		Policy:      policy.DefaultConfig(),
		Pipeline: PipelineConfig{
			Workers:              8,
			SymbolTimeoutSeconds: 5,
		},
		Output: OutputConfig{ArtifactsDir: "out/cycles", KeepCycles: 64},
		Server: ServerConfig{Addr: ":8085", RatePerSecond: 20, Burst: 40},
	}
}

// Load reads and validates an engine configuration. Any invalid table is
// fatal here, before a scoring cycle can run against it.
func Load(path string) (*Engine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse engine config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on any malformed section.
func (e *Engine) Validate() error {
	if err := e.Scorers.Validate(); err != nil {
		return fmt.Errorf("scorers: %w", err)
	}
	if err := e.Regime.Validate(); err != nil {
		return fmt.Errorf("regime: %w", err)
	}
	// Profile sums are validated by constructing the resolver.
	if _, err := weights.NewResolver(e.Weights); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if err := e.Tiers.Validate(); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}
	if err := e.Reliability.Validate(); err != nil {
		return fmt.Errorf("reliability: %w", err)
	}
	if err := e.Lifecycle.Validate(); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	if err := e.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if e.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline: workers %d must be at least 1", e.Pipeline.Workers)
	}
	if e.Pipeline.SymbolTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline: symbol_timeout_seconds must be positive")
	}
	return nil
}
