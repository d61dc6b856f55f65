// Package config loads engine configuration from TOML or YAML files and
// environment variables, and watches the file for live reload.
//
// Values are applied in order: defaults, then the file, then environment
// variables prefixed with GESTUREKIT_.
package config

import (
	"fmt"
	"strings"

	"github.com/dshills/gesturekit/internal/gesture"
	"github.com/dshills/gesturekit/internal/logging"
)

// Config is the engine configuration.
type Config struct {
	Log      LogConfig      `toml:"log" yaml:"log" json:"log"`
	Engine   EngineConfig   `toml:"engine" yaml:"engine" json:"engine"`
	Dispatch DispatchConfig `toml:"dispatch" yaml:"dispatch" json:"dispatch"`
	Loop     LoopConfig     `toml:"loop" yaml:"loop" json:"loop"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level  string `toml:"level" yaml:"level" json:"level"`
	Prefix string `toml:"prefix" yaml:"prefix" json:"prefix"`
}

// EngineConfig configures reconciliation.
type EngineConfig struct {
	// RelationRetryBudget is the number of extra passes an unresolved
	// relation gets before it is treated as absent.
	RelationRetryBudget int `toml:"relation_retry_budget" yaml:"relation_retry_budget" json:"relation_retry_budget"`

	// DefaultContext is the execution context new descriptors start with:
	// deferred or synchronous.
	DefaultContext string `toml:"default_context" yaml:"default_context" json:"default_context"`
}

// DispatchConfig configures callback execution.
type DispatchConfig struct {
	RecoverPanics bool `toml:"recover_panics" yaml:"recover_panics" json:"recover_panics"`
	CaptureStack  bool `toml:"capture_stack" yaml:"capture_stack" json:"capture_stack"`
}

// LoopConfig configures the deferred loop.
type LoopConfig struct {
	MaxMicrotasksPerTick int `toml:"max_microtasks_per_tick" yaml:"max_microtasks_per_tick" json:"max_microtasks_per_tick"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Prefix: "gesturekit",
		},
		Engine: EngineConfig{
			RelationRetryBudget: 3,
			DefaultContext:      "deferred",
		},
		Dispatch: DispatchConfig{
			RecoverPanics: true,
			CaptureStack:  true,
		},
		Loop: LoopConfig{
			MaxMicrotasksPerTick: 10000,
		},
	}
}

// Validate checks every value. All problems are reported together.
func (c Config) Validate() error {
	var problems []string
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		problems = append(problems, fmt.Sprintf("log.level %q", c.Log.Level))
	}
	if c.Engine.RelationRetryBudget < 0 {
		problems = append(problems, fmt.Sprintf("engine.relation_retry_budget %d", c.Engine.RelationRetryBudget))
	}
	if _, err := gesture.ParseExecutionContext(c.Engine.DefaultContext); err != nil {
		problems = append(problems, fmt.Sprintf("engine.default_context %q", c.Engine.DefaultContext))
	}
	if c.Loop.MaxMicrotasksPerTick <= 0 {
		problems = append(problems, fmt.Sprintf("loop.max_microtasks_per_tick %d", c.Loop.MaxMicrotasksPerTick))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(problems, ", "))
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// ExecutionContext returns the parsed default execution context.
func (c Config) ExecutionContext() gesture.ExecutionContext {
	ctx, _ := gesture.ParseExecutionContext(c.Engine.DefaultContext)
	return ctx
}
