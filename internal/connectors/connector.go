// Package connectors defines the boundary between the chat orchestrator
// and the backends that actually execute tools.
package connectors

import (
	"context"
	"encoding/json"

	"github.com/cloudquill/cloudquill/pkg/models"
)

// Connector is an external backend exposing a fixed set of named
// operations with JSON input and JSON-or-text output. Implementations
// own schema validation of their inputs; callers treat Execute as
// opaque.
type Connector interface {
	// Name identifies the connector in logs and collision warnings.
	Name() string

	// ListTools returns the descriptors of every operation this
	// connector exposes, in a stable order.
	ListTools(ctx context.Context) ([]models.ToolDescriptor, error)

	// Execute runs the named tool. Any failure (validation, transport,
	// downstream rejection) is returned as an error; retries, if any,
	// happen below this boundary.
	Execute(ctx context.Context, tool string, input json.RawMessage) (json.RawMessage, error)
}
