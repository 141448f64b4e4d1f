// Package config defines the configuration record consumed by the agent loop
// together with loaders for YAML files and environment variables.
//
// Precedence (lowest first): Default(), a YAML file (LoadFile), environment
// variables (ApplyEnv) and finally explicit overrides by the caller (CLI flags).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/reactmesh/internal/util"
)

const (
	// DefaultModel is the backend identifier used when none is configured.
	DefaultModel = "openai:gpt-4o-mini"
	// DefaultMaxSearchResults caps results returned by search-like capabilities.
	DefaultMaxSearchResults = 5
	// DefaultEmbeddingModel backs the document store capabilities.
	DefaultEmbeddingModel = "openai:text-embedding-3-small"
	// DefaultDiscoveryTimeout bounds one remote discovery round.
	DefaultDiscoveryTimeout = 10 * time.Second
)

// Config is the configuration record carried by the session state.
type Config struct {
	// Model is the backend identifier "<provider>:<model>".
	Model string `yaml:"model"`
	// SystemPrompt is a text/template with {{.Tools}} and {{.SystemTime}}.
	SystemPrompt string `yaml:"system_prompt"`
	// MaxSearchResults caps the results of search-like capabilities.
	MaxSearchResults int `yaml:"max_search_results"`
	// DiscoveryURL is the remote capability endpoint; empty disables discovery.
	DiscoveryURL string `yaml:"discovery_url"`
	// DiscoveryTimeout bounds one discovery round.
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
	// ExtendedTools adds wikipedia, arxiv and the document store to the baseline set.
	ExtendedTools bool `yaml:"extended_tools"`
	// EmbeddingModel is the "<provider>:<model>" used by the document store.
	EmbeddingModel string `yaml:"embedding_model"`
	// DocStorePath persists documents in SQLite; empty keeps them in memory.
	DocStorePath string `yaml:"docstore_path"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is json or text.
	LogFormat string `yaml:"log_format"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Model:            DefaultModel,
		SystemPrompt:     DefaultSystemPrompt,
		MaxSearchResults: DefaultMaxSearchResults,
		DiscoveryTimeout: DefaultDiscoveryTimeout,
		EmbeddingModel:   DefaultEmbeddingModel,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadFile merges the YAML document at path into cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overrides cfg from environment variables. A variable that is set
// (even to the empty string) wins over the current value; lookup defaults to
// os.LookupEnv when nil.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, ok := lookup("MODEL"); ok {
		cfg.Model = v
	}

	if v, ok := lookup("SYSTEM_PROMPT"); ok {
		cfg.SystemPrompt = v
	}

	if v, ok := lookup("MAX_SEARCH_RESULTS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return NewConfigError("MAX_SEARCH_RESULTS", v, "must be an integer")
		}
		cfg.MaxSearchResults = n
	}

	// MCPO_URL is the historical name of the discovery endpoint.
	if v, ok := lookup("MCPO_URL"); ok {
		cfg.DiscoveryURL = v
	}

	if v, ok := lookup("DISCOVERY_URL"); ok {
		cfg.DiscoveryURL = v
	}

	if v, ok := lookup("DISCOVERY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewConfigError("DISCOVERY_TIMEOUT", v, "must be a duration such as 10s")
		}
		cfg.DiscoveryTimeout = d
	}

	if v, ok := lookup("EXTENDED_TOOLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return NewConfigError("EXTENDED_TOOLS", v, "must be a boolean")
		}
		cfg.ExtendedTools = b
	}

	if v, ok := lookup("EMBEDDING_MODEL"); ok {
		cfg.EmbeddingModel = v
	}

	if v, ok := lookup("DOCSTORE_PATH"); ok {
		cfg.DocStorePath = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}

	return nil
}

// Load builds a configuration from defaults, an optional YAML file and the
// process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := LoadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnv(&cfg, nil); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first configuration error: a malformed backend
// identifier or a system prompt that does not parse as a template.
func (c Config) Validate() error {
	if _, err := ParseModelID(c.Model); err != nil {
		return err
	}

	if _, err := util.ParseTemplate(c.SystemPrompt); err != nil {
		return NewConfigError("system_prompt", truncate(c.SystemPrompt, 40), err.Error())
	}

	if c.DiscoveryTimeout < 0 {
		return NewConfigError("discovery_timeout", c.DiscoveryTimeout.String(), "must not be negative")
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
