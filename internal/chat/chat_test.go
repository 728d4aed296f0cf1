package chat

// Shared test doubles for the chat package.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudquill/cloudquill/pkg/models"
)

// fakeConnector serves a fixed descriptor set and scripted results.
type fakeConnector struct {
	name        string
	descriptors []models.ToolDescriptor

	// results maps tool name to payload; errs maps tool name to error.
	results map[string]json.RawMessage
	errs    map[string]error

	// calls records every Execute invocation.
	calls []fakeCall

	panicOn string
}

type fakeCall struct {
	tool  string
	input json.RawMessage
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	return f.descriptors, nil
}

func (f *fakeConnector) Execute(ctx context.Context, tool string, input json.RawMessage) (json.RawMessage, error) {
	f.calls = append(f.calls, fakeCall{tool: tool, input: input})
	if tool == f.panicOn {
		panic("connector exploded")
	}
	if err, ok := f.errs[tool]; ok {
		return nil, err
	}
	if payload, ok := f.results[tool]; ok {
		return payload, nil
	}
	return nil, fmt.Errorf("no scripted result for %s", tool)
}

func newFakeConnector(name string, tools ...string) *fakeConnector {
	f := &fakeConnector{
		name:    name,
		results: map[string]json.RawMessage{},
		errs:    map[string]error{},
	}
	for _, tool := range tools {
		f.descriptors = append(f.descriptors, models.ToolDescriptor{
			Name:        tool,
			Description: "does " + tool,
			InputSchema: json.RawMessage(`{"type":"object"}`),
		})
	}
	return f
}

// fakeModel returns scripted replies in order, then an error.
type fakeModel struct {
	replies []string
	errs    []error
	calls   [][]models.Message
}

func (m *fakeModel) Chat(ctx context.Context, messages []models.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := len(m.calls)
	m.calls = append(m.calls, messages)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func (m *fakeModel) Provider() string { return "fake" }

// fakeKnowledge returns a fixed snippet set or a scripted error.
type fakeKnowledge struct {
	snippets []models.KnowledgeSnippet
	err      error
	queries  []string
}

func (k *fakeKnowledge) Search(ctx context.Context, query string, limit int) ([]models.KnowledgeSnippet, error) {
	k.queries = append(k.queries, query)
	if k.err != nil {
		return nil, k.err
	}
	if limit < len(k.snippets) {
		return k.snippets[:limit], nil
	}
	return k.snippets, nil
}

// collect drains a run's event stream.
func collect(ch <-chan models.Event) []models.Event {
	var out []models.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}
