package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable the engine reads.
const EnvPrefix = "GESTUREKIT_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envSetter func(cfg *Config, value string) error

var envMapping = map[string]envSetter{
	"LOG_LEVEL": func(cfg *Config, v string) error {
		cfg.Log.Level = v
		return nil
	},
	"LOG_PREFIX": func(cfg *Config, v string) error {
		cfg.Log.Prefix = v
		return nil
	},
	"RELATION_RETRY_BUDGET": func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		cfg.Engine.RelationRetryBudget = n
		return nil
	},
	"DEFAULT_CONTEXT": func(cfg *Config, v string) error {
		cfg.Engine.DefaultContext = v
		return nil
	},
	"RECOVER_PANICS": func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		cfg.Dispatch.RecoverPanics = b
		return nil
	},
	"CAPTURE_STACK": func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		cfg.Dispatch.CaptureStack = b
		return nil
	},
	"MAX_MICROTASKS_PER_TICK": func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		cfg.Loop.MaxMicrotasksPerTick = n
		return nil
	},
}

// EnvKeys returns the environment variables ApplyEnv reads.
func EnvKeys() []string {
	keys := make([]string, 0, len(envMapping))
	for suffix := range envMapping {
		keys = append(keys, EnvPrefix+suffix)
	}
	return keys
}

// ApplyEnv overrides cfg with any GESTUREKIT_* variables lookup finds.
// Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for suffix, set := range envMapping {
		key := EnvPrefix + suffix
		v, ok := lookup(key)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if err := set(cfg, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, v, err)
		}
	}
	return nil
}
