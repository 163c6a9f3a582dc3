// Package config provides configuration loading for verdictd.
//
// Precedence, highest to lowest: environment variables prefixed VERDICTD_,
// then the YAML config file, then hardcoded defaults. Environment variables
// map to config keys by stripping the prefix, lowercasing, and splitting on
// the first underscore: VERDICTD_SERVER_PORT -> server.port,
// VERDICTD_RETRIEVAL_TOP_K -> retrieval.top_k.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/embeddings"
	"github.com/fathomworks/verdictd/internal/llm"
	"github.com/fathomworks/verdictd/internal/logging"
	"github.com/fathomworks/verdictd/internal/retrieval"
	"github.com/fathomworks/verdictd/internal/server"
)

const envPrefix = "VERDICTD_"

// Config aggregates all component configurations.
type Config struct {
	Logging    logging.Config    `koanf:"logging"`
	Document   document.Config   `koanf:"document"`
	Retrieval  retrieval.Config  `koanf:"retrieval"`
	Decision   decision.Config   `koanf:"decision"`
	Embeddings embeddings.Config `koanf:"embeddings"`
	LLM        llm.Config        `koanf:"llm"`
	Server     server.Config     `koanf:"server"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults sets default values for all unset fields.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	c.Document.ApplyDefaults()
	c.Retrieval.ApplyDefaults()
	c.Decision.ApplyDefaults()
	c.Embeddings.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// Validate validates every component configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Document.Validate(); err != nil {
		return fmt.Errorf("document: %w", err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := c.Decision.Validate(); err != nil {
		return fmt.Errorf("decision: %w", err)
	}
	if err := c.Embeddings.Validate(); err != nil {
		return fmt.Errorf("embeddings: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Load reads configuration from an optional YAML file and VERDICTD_*
// environment variables. An empty path skips the file layer; a named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// VERDICTD_RETRIEVAL_TOP_K -> retrieval.top_k: the first
		// underscore separates section from field, the rest belong to
		// the field name.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}
