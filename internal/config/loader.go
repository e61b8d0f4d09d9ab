package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PRETOR_CONFIG is set
//  3. env (prefix PRETOR_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("PRETOR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PRETOR_LOG_LEVEL, PRETOR_COURSE_PATH, ...
	// Map env keys like PRETOR_COURSE_PATH -> course_path (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PRETOR_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pretor_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.CommitConcurrency < 1 {
		return nil, fmt.Errorf("%w: commit_concurrency must be at least 1", ErrInvalidConfig)
	}
	switch cfg.OutputFormat {
	case "plain", "csv", "tsv":
	default:
		return nil, fmt.Errorf("%w: unknown output_format %q", ErrInvalidConfig, cfg.OutputFormat)
	}
	return &cfg, nil
}
