package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudquill/cloudquill/internal/observability"
)

// ResultKind discriminates the outcome of one attempted invocation.
type ResultKind string

const (
	ResultSuccess        ResultKind = "success"
	ResultUnknownTool    ResultKind = "unknown_tool"
	ResultExecutionError ResultKind = "execution_error"
)

// InvocationResult is the single outcome of routing one invocation.
// Exactly one of Payload or ErrMessage is meaningful, selected by Kind.
type InvocationResult struct {
	Kind       ResultKind
	Tool       string
	Payload    json.RawMessage // set when Kind == ResultSuccess
	ErrMessage string          // set otherwise
}

// Router validates a decoded invocation against the catalog and
// dispatches it to the owning connector. It performs no retries and
// never lets a connector failure escape as anything but an
// InvocationResult.
type Router struct {
	catalog *Catalog
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRouter creates a router over the given catalog.
func NewRouter(catalog *Catalog, logger *observability.Logger, metrics *observability.Metrics) *Router {
	return &Router{catalog: catalog, logger: logger, metrics: metrics}
}

// Dispatch executes one invocation and returns exactly one result.
// A name absent from the catalog is never forwarded to any connector.
func (r *Router) Dispatch(ctx context.Context, inv *Invocation) (result InvocationResult) {
	result = InvocationResult{Tool: inv.ToolName}

	_, conn, ok := r.catalog.Lookup(inv.ToolName)
	if !ok {
		result.Kind = ResultUnknownTool
		result.ErrMessage = fmt.Sprintf("Unknown tool: %s", inv.ToolName)
		r.count(inv.ToolName, "unknown_tool")
		return result
	}

	// A panicking connector must not take the run down with it; the
	// caller is owed exactly one result either way.
	defer func() {
		if rec := recover(); rec != nil {
			result.Kind = ResultExecutionError
			result.ErrMessage = fmt.Sprintf("connector panic: %v", rec)
			r.count(inv.ToolName, "error")
		}
	}()

	start := time.Now()
	payload, err := conn.Execute(ctx, inv.ToolName, inv.Input)
	if r.metrics != nil {
		r.metrics.ToolExecutionDuration.WithLabelValues(inv.ToolName).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if r.logger != nil {
			r.logger.Error(ctx, "tool execution failed", "tool", inv.ToolName, "error", err)
		}
		result.Kind = ResultExecutionError
		result.ErrMessage = err.Error()
		r.count(inv.ToolName, "error")
		return result
	}

	result.Kind = ResultSuccess
	result.Payload = payload
	r.count(inv.ToolName, "success")
	return result
}

func (r *Router) count(tool, status string) {
	if r.metrics != nil {
		r.metrics.ToolExecutions.WithLabelValues(tool, status).Inc()
	}
}
