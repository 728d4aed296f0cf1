// Package llm provides the model-inference boundary: an ordered list of
// role/content messages in, one assistant message out.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudquill/cloudquill/pkg/models"
)

// ChatClient is the narrow model call used by the orchestrator. The
// call is request/response; streaming, retries, and backoff live below
// this boundary if a provider wants them.
type ChatClient interface {
	// Chat returns the assistant's reply to the given conversation.
	Chat(ctx context.Context, messages []models.Message) (string, error)

	// Provider names the backing implementation for logs and metrics.
	Provider() string
}

// ProviderError wraps a provider failure with its origin.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with the provider name.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}
