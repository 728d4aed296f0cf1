package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// loadFile reads one configuration file, expands environment variable
// references in its text, and decodes it strictly into a Config.
// The format is chosen by extension: .json and .json5 are parsed as
// JSON5, everything else as a single YAML document.
func loadFile(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		return decodeJSON5(expanded)
	default:
		return decodeYAML(expanded)
	}
}

// decodeYAML decodes exactly one YAML document. Unknown keys are
// rejected so a typo like "servre" fails at startup instead of
// silently falling back to defaults.
func decodeYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("failed to parse config: expected single document")
	}
	return &cfg, nil
}

// decodeJSON5 parses JSON5 into a generic map and re-encodes it through
// YAML, so both formats share one set of field tags and the same
// unknown-key rejection.
func decodeJSON5(data []byte) (*Config, error) {
	var raw map[string]any
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return decodeYAML(payload)
}
