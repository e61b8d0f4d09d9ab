// Package config defines tool configuration structures and loading hooks.
//
// Precedence, lowest to highest: New() defaults, the optional YAML file
// named by PRETOR_CONFIG, then PRETOR_* environment variables.
package config

// Config contains process configuration shared by the pretor CLIs.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CoursePath is the colon-delimited course-definition search path.
	CoursePath string `koanf:"course_path"`

	// QueryRoot is the default directory searched for .psf files by the
	// query tool when no paths are given.
	QueryRoot string `koanf:"query_root"`

	// CommitConcurrency bounds concurrent archive writers in the
	// reconciliation commit phase. Archives are independent; each archive
	// still sees at most one writer.
	CommitConcurrency int `koanf:"commit_concurrency"`

	// OutputFormat selects query output rendering: plain, csv, tsv.
	OutputFormat string `koanf:"output_format"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		CoursePath:        "./",
		QueryRoot:         "./",
		CommitConcurrency: 4,
		OutputFormat:      "plain",
	}
}
