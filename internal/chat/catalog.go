package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudquill/cloudquill/internal/connectors"
	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/pkg/models"
)

// Catalog aggregates the tool descriptors advertised by every connected
// backend and resolves tool name to owning connector. Registration is
// last-write-wins on name collision; collisions are logged rather than
// silently absorbed so operators can see the conflict.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
	order   []string

	logger *observability.Logger
}

type catalogEntry struct {
	descriptor models.ToolDescriptor
	connector  connectors.Connector
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *observability.Logger) *Catalog {
	return &Catalog{
		entries: make(map[string]catalogEntry),
		logger:  logger,
	}
}

// Register adds a connector's descriptors to the catalog. Registering
// the same descriptors again for the same connector is a no-op. When a
// later connector registers an already-taken name, the newcomer wins
// and the collision is logged at warn.
func (c *Catalog) Register(ctx context.Context, conn connectors.Connector, descriptors []models.ToolDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range descriptors {
		existing, ok := c.entries[d.Name]
		if ok && existing.connector.Name() != conn.Name() && c.logger != nil {
			c.logger.Warn(ctx, "tool name collision, last registration wins",
				"tool", d.Name,
				"previous_connector", existing.connector.Name(),
				"connector", conn.Name())
		}
		if !ok {
			// Registration order is preserved so the numbering shown to
			// the model stays stable across a run.
			c.order = append(c.order, d.Name)
		}
		c.entries[d.Name] = catalogEntry{descriptor: d, connector: conn}
	}
}

// Lookup resolves a tool name to its descriptor and owning connector.
func (c *Catalog) Lookup(name string) (models.ToolDescriptor, connectors.Connector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok {
		return models.ToolDescriptor{}, nil, false
	}
	return entry.descriptor, entry.connector, true
}

// Descriptors returns all registered descriptors in registration order.
func (c *Catalog) Descriptors() []models.ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.ToolDescriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name].descriptor)
	}
	return out
}

// Describe renders the catalog for inclusion in a prompt, one tool per
// line in registration order.
func (c *Catalog) Describe() string {
	descriptors := c.Descriptors()
	if len(descriptors) == 0 {
		return "No tools available."
	}

	var b strings.Builder
	for i, d := range descriptors {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", d.Name, d.Description)
		if len(d.InputSchema) > 0 {
			fmt.Fprintf(&b, " (input schema: %s)", string(d.InputSchema))
		}
	}
	return b.String()
}

// Len reports the number of registered tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
