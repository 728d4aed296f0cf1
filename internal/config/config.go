// Package config loads and validates the cloudquill configuration from
// YAML or JSON5 files with environment variable expansion.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main configuration structure for cloudquill.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	AWS       AWSConfig       `yaml:"aws"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Session   SessionConfig   `yaml:"session"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LLMConfig struct {
	// Provider is "ollama" or "openai".
	Provider string       `yaml:"provider"`
	Ollama   OllamaConfig `yaml:"ollama"`
	OpenAI   OpenAIConfig `yaml:"openai"`
}

type OllamaConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type KnowledgeConfig struct {
	// Path to the sqlite snippet database.
	Path string `yaml:"path"`

	// EmbeddingModel served by Ollama, e.g. "nomic-embed-text".
	EmbeddingModel string `yaml:"embedding_model"`

	// EmbeddingBaseURL overrides the Ollama base URL for embeddings.
	EmbeddingBaseURL string `yaml:"embedding_base_url"`

	// Seed loads the built-in AWS corpus into an empty store.
	Seed *bool `yaml:"seed"`

	// SearchLimit is the maximum snippets folded into a prompt.
	SearchLimit int `yaml:"search_limit"`
}

type SessionConfig struct {
	// Cap is the transcript bound per session.
	Cap int `yaml:"cap"`

	// RecentContext is how many entries surface in the prompt.
	RecentContext int `yaml:"recent_context"`

	// PreviewLength truncates stored assistant replies.
	PreviewLength int `yaml:"preview_length"`
}

type AuditConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Ollama.BaseURL == "" {
		cfg.LLM.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Ollama.Model == "" {
		cfg.LLM.Ollama.Model = "granite3.1"
	}
	if cfg.LLM.Ollama.Timeout == 0 {
		cfg.LLM.Ollama.Timeout = 2 * time.Minute
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Knowledge.Path == "" {
		cfg.Knowledge.Path = "cloudquill_knowledge.db"
	}
	if cfg.Knowledge.EmbeddingModel == "" {
		cfg.Knowledge.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Knowledge.Seed == nil {
		seed := true
		cfg.Knowledge.Seed = &seed
	}
	if cfg.Knowledge.SearchLimit == 0 {
		cfg.Knowledge.SearchLimit = 3
	}
	if cfg.Session.Cap == 0 {
		cfg.Session.Cap = 20
	}
	if cfg.Session.RecentContext == 0 {
		cfg.Session.RecentContext = 3
	}
	if cfg.Session.PreviewLength == 0 {
		cfg.Session.PreviewLength = 200
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "cloudquill_audit.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "ollama":
		if c.LLM.Ollama.Model == "" {
			return fmt.Errorf("ollama model is required")
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("openai api key is required")
		}
		if c.LLM.OpenAI.Model == "" {
			return fmt.Errorf("openai model is required")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	if c.Session.Cap < 2 {
		return fmt.Errorf("session cap %d too small", c.Session.Cap)
	}
	if c.Session.RecentContext > c.Session.Cap {
		return fmt.Errorf("recent_context %d exceeds session cap %d", c.Session.RecentContext, c.Session.Cap)
	}
	return nil
}
