package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/internal/sessions"
	"github.com/cloudquill/cloudquill/pkg/models"
)

// ModelClient is the narrow model-inference boundary: an ordered list
// of role/content messages in, one assistant message out. No streaming.
type ModelClient interface {
	Chat(ctx context.Context, messages []models.Message) (string, error)
	Provider() string
}

// KnowledgeSearcher is the narrow knowledge-lookup boundary: a query
// in, up to limit ranked snippets out.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.KnowledgeSnippet, error)
}

// Orchestrator drives one end-to-end conversational turn:
// compose, call model, parse, optionally route and execute, compose
// follow-up, call model again, finalize. It is the only component that
// knows the ordering; everything it touches is stateless or holds only
// its own bounded state.
type Orchestrator struct {
	catalog   *Catalog
	router    *Router
	store     *sessions.Store
	composer  *Composer
	model     ModelClient
	knowledge KnowledgeSearcher

	logger  *observability.Logger
	metrics *observability.Metrics

	knowledgeLimit int
	recentK        int
}

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	Catalog   *Catalog
	Router    *Router
	Sessions  *sessions.Store
	Composer  *Composer
	Model     ModelClient
	Knowledge KnowledgeSearcher
	Logger    *observability.Logger
	Metrics   *observability.Metrics

	// KnowledgeLimit is the maximum snippets folded into a prompt.
	// Default: 3.
	KnowledgeLimit int

	// RecentContext is how many transcript entries are surfaced as
	// prompt context. Default: sessions.DefaultRecent.
	RecentContext int
}

// NewOrchestrator creates an orchestrator. Catalog, Router, Sessions,
// Composer, and Model are required.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.KnowledgeLimit <= 0 {
		cfg.KnowledgeLimit = 3
	}
	if cfg.RecentContext <= 0 {
		cfg.RecentContext = sessions.DefaultRecent
	}
	return &Orchestrator{
		catalog:        cfg.Catalog,
		router:         cfg.Router,
		store:          cfg.Sessions,
		composer:       cfg.Composer,
		model:          cfg.Model,
		knowledge:      cfg.Knowledge,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		knowledgeLimit: cfg.KnowledgeLimit,
		recentK:        cfg.RecentContext,
	}
}

// Request is one inbound conversational turn.
type Request struct {
	// SessionID is an opaque conversation key; empty selects the
	// default session.
	SessionID string

	// Message is the user's natural-language message.
	Message string
}

// Run executes one turn and returns the run's ordered event stream.
// The channel is closed after the terminal event. Runs for distinct
// sessions execute concurrently without interference; cancelling ctx
// abandons in-flight calls and stops emission.
func (o *Orchestrator) Run(ctx context.Context, req Request) <-chan models.Event {
	em := newEmitter(ctx)
	go func() {
		defer em.close()
		o.run(ctx, req, em)
	}()
	return em.events()
}

func (o *Orchestrator) run(ctx context.Context, req Request, em *emitter) {
	sessionID := sessions.Normalize(req.SessionID)
	ctx = observability.WithRequestID(ctx, uuid.NewString())
	ctx = observability.WithSessionID(ctx, sessionID)

	// KnowledgeLookup: non-fatal. The info event notes that the search
	// happened regardless of how many snippets came back.
	if !em.emit(models.StatusInfo, "Searching AWS knowledge base...") {
		return
	}
	snippets := o.searchKnowledge(ctx, req.Message)

	firstTurn := o.composer.FirstTurn(
		req.Message,
		snippets,
		o.store.Recent(sessionID, o.recentK),
		o.catalog.Describe(),
	)

	if !em.emit(models.StatusInfo, "Processing your request...") {
		return
	}

	// FirstModelCall: fatal for the run on failure.
	reply, err := o.callModel(ctx, firstTurn, "first")
	if err != nil {
		o.logError(ctx, "model call failed", err)
		o.terminate(em, models.StatusError, err.Error())
		return
	}

	o.store.Append(sessionID, sessions.EntryUser, req.Message)
	o.store.Append(sessionID, sessions.EntryAssistant, reply)

	// ParseAttempt: at most one invocation per model turn.
	inv, perr := ParseInvocation(reply)
	if perr != nil {
		o.logError(ctx, "tool call parse failed", perr)
		o.terminate(em, models.StatusError, perr.Error())
		return
	}
	if inv == nil {
		// NoCall: the reply is the answer.
		o.terminate(em, models.StatusAssistant, reply)
		return
	}

	// RoutedCallPath.
	if !em.emit(models.StatusInfo, fmt.Sprintf("Executing %s...", inv.ToolName)) {
		return
	}
	result := o.router.Dispatch(ctx, inv)
	switch result.Kind {
	case ResultUnknownTool, ResultExecutionError:
		// No follow-up model call after a routing failure.
		o.terminate(em, models.StatusError, result.ErrMessage)
		return
	case ResultSuccess:
		if !em.emitResult("Tool execution completed", result.Payload) {
			return
		}
	}

	// FollowUpModelCall: fold the tool outcome back into a second turn.
	followUp := o.composer.FollowUp(firstTurn, reply, result.Payload)
	summary, err := o.callModel(ctx, followUp, "followup")
	if err != nil {
		o.logError(ctx, "follow-up model call failed", err)
		o.terminate(em, models.StatusError, err.Error())
		return
	}
	o.terminate(em, models.StatusAssistant, summary)
}

// searchKnowledge degrades to an empty snippet set on any failure.
func (o *Orchestrator) searchKnowledge(ctx context.Context, query string) []models.KnowledgeSnippet {
	if o.knowledge == nil {
		return nil
	}
	start := time.Now()
	snippets, err := o.knowledge.Search(ctx, query, o.knowledgeLimit)
	if o.metrics != nil {
		o.metrics.KnowledgeLookupDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if o.logger != nil {
			o.logger.Warn(ctx, "knowledge lookup failed, continuing without snippets", "error", err)
		}
		return nil
	}
	return snippets
}

func (o *Orchestrator) callModel(ctx context.Context, messages []models.Message, turn string) (string, error) {
	start := time.Now()
	reply, err := o.model.Chat(ctx, messages)
	if o.metrics != nil {
		o.metrics.ModelCallDuration.WithLabelValues(o.model.Provider(), turn).Observe(time.Since(start).Seconds())
	}
	return reply, err
}

// terminate emits the run's single terminal event and records the
// outcome.
func (o *Orchestrator) terminate(em *emitter, status models.EventStatus, message string) {
	em.emit(status, message)
	if o.metrics != nil {
		o.metrics.ChatRuns.WithLabelValues(string(status)).Inc()
	}
}

func (o *Orchestrator) logError(ctx context.Context, msg string, err error) {
	if o.logger != nil {
		o.logger.Error(ctx, msg, "error", err)
	}
}
