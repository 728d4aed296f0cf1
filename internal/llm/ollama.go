package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/cloudquill/cloudquill/pkg/models"
)

// OllamaConfig configures the Ollama chat client.
type OllamaConfig struct {
	// BaseURL of the Ollama server. Default: http://localhost:11434.
	BaseURL string

	// Model is the model name, e.g. "granite3.1". Required.
	Model string

	// Timeout bounds one chat request. Default: 2 minutes.
	Timeout time.Duration
}

// OllamaClient implements ChatClient against a local or remote Ollama
// server.
type OllamaClient struct {
	client *api.Client
	model  string
}

var _ ChatClient = (*OllamaClient)(nil)

// NewOllamaClient creates an Ollama chat client.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ollama model is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = "http://localhost:11434"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &OllamaClient{
		client: api.NewClient(parsed, &http.Client{Timeout: timeout}),
		model:  cfg.Model,
	}, nil
}

// Provider returns "ollama".
func (c *OllamaClient) Provider() string {
	return "ollama"
}

// Chat sends a non-streaming chat request and returns the assistant
// reply.
func (c *OllamaClient) Chat(ctx context.Context, messages []models.Message) (string, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Stream:   boolPtr(false),
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", NewProviderError("ollama", err)
	}
	return content.String(), nil
}

func toOllamaMessages(messages []models.Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, m := range messages {
		out[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
