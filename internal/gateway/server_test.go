package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudquill/cloudquill/internal/audit"
	"github.com/cloudquill/cloudquill/internal/chat"
	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/internal/sessions"
	"github.com/cloudquill/cloudquill/pkg/models"
)

type fakeRunner struct {
	events  []models.Event
	lastReq chat.Request
}

func (f *fakeRunner) Run(ctx context.Context, req chat.Request) <-chan models.Event {
	f.lastReq = req
	ch := make(chan models.Event)
	go func() {
		defer close(ch)
		for _, event := range f.events {
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type fakeSearcher struct {
	results []models.KnowledgeSnippet
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]models.KnowledgeSnippet, error) {
	return f.results, f.err
}

type fakeHistory struct {
	entries []audit.Entry
	err     error
	filter  audit.Filter
}

func (f *fakeHistory) History(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	f.filter = filter
	return f.entries, f.err
}

func newTestServer(t *testing.T, opts ServerOptions) *Server {
	t.Helper()
	if opts.Runner == nil {
		opts.Runner = &fakeRunner{}
	}
	if opts.Sessions == nil {
		opts.Sessions = sessions.NewStore()
	}
	server, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return server
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(ServerOptions{Sessions: sessions.NewStore()}); err == nil {
		t.Fatal("expected error for missing runner")
	}
	if _, err := NewServer(ServerOptions{Runner: &fakeRunner{}}); err == nil {
		t.Fatal("expected error for missing sessions")
	}
}

func TestChatStreamsNDJSON(t *testing.T) {
	runner := &fakeRunner{events: []models.Event{
		{Message: "Searching AWS knowledge base...", Status: models.StatusInfo, Timestamp: time.Now()},
		{Message: "Processing your request...", Status: models.StatusInfo, Timestamp: time.Now()},
		{Message: "EC2 is a compute service.", Status: models.StatusAssistant, Timestamp: time.Now()},
	}}
	server := newTestServer(t, ServerOptions{Runner: runner})

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"what is ec2?","session_id":"abc"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-ndjson" {
		t.Fatalf("content type = %q", got)
	}
	if runner.lastReq.SessionID != "abc" || runner.lastReq.Message != "what is ec2?" {
		t.Fatalf("runner request = %+v", runner.lastReq)
	}

	var events []models.Event
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var event models.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		events = append(events, event)
	}
	if len(events) != 3 {
		t.Fatalf("streamed %d events, want 3", len(events))
	}
	if events[2].Status != models.StatusAssistant {
		t.Fatalf("terminal event = %+v", events[2])
	}
}

func TestChatValidation(t *testing.T) {
	server := newTestServer(t, ServerOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{`},
		{"missing message", `{"session_id":"abc"}`},
		{"blank message", `{"message":"   "}`},
		{"too long", `{"message":"` + strings.Repeat("a", MaxMessageLength+1) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestChatMessageAtLimitAccepted(t *testing.T) {
	runner := &fakeRunner{events: []models.Event{
		{Message: "ok", Status: models.StatusAssistant, Timestamp: time.Now()},
	}}
	server := newTestServer(t, ServerOptions{Runner: runner})

	body := `{"message":"` + strings.Repeat("a", MaxMessageLength) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestClearSession(t *testing.T) {
	store := sessions.NewStore()
	store.Append("abc", sessions.EntryUser, "hello")
	server := newTestServer(t, ServerOptions{Sessions: store})

	req := httptest.NewRequest(http.MethodDelete, "/sessions/abc", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/never-created", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestKnowledgeSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []models.KnowledgeSnippet{
		{ID: "ec2_basics", Text: "EC2 provides compute.", Distance: 0.12},
	}}
	server := newTestServer(t, ServerOptions{Knowledge: searcher})

	req := httptest.NewRequest(http.MethodPost, "/knowledge/search",
		strings.NewReader(`{"query":"ec2","limit":3}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Results []models.KnowledgeSnippet `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0].ID != "ec2_basics" {
		t.Fatalf("results = %+v", payload.Results)
	}
}

func TestKnowledgeSearchValidation(t *testing.T) {
	server := newTestServer(t, ServerOptions{Knowledge: &fakeSearcher{}})

	req := httptest.NewRequest(http.MethodPost, "/knowledge/search", strings.NewReader(`{"query":""}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestKnowledgeSearchNotConfigured(t *testing.T) {
	server := newTestServer(t, ServerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/knowledge/search", strings.NewReader(`{"query":"ec2"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestOperationHistory(t *testing.T) {
	history := &fakeHistory{entries: []audit.Entry{
		{OperationType: "list_s3_buckets", Status: "success"},
	}}
	server := newTestServer(t, ServerOptions{History: history})

	req := httptest.NewRequest(http.MethodGet, "/operations/history?operation_type=list_s3_buckets&status=success&limit=5", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if history.filter.OperationType != "list_s3_buckets" || history.filter.Status != "success" || history.filter.Limit != 5 {
		t.Fatalf("filter = %+v", history.filter)
	}

	var payload struct {
		Operations []audit.Entry `json:"operations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Operations) != 1 {
		t.Fatalf("operations = %+v", payload.Operations)
	}
}

func TestOperationHistoryBadLimit(t *testing.T) {
	server := newTestServer(t, ServerOptions{History: &fakeHistory{}})

	for _, limit := range []string{"0", "101", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/operations/history?limit="+limit, nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestOperationHistoryFailure(t *testing.T) {
	server := newTestServer(t, ServerOptions{History: &fakeHistory{err: errors.New("db down")}})

	req := httptest.NewRequest(http.MethodGet, "/operations/history", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, ServerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.ChatRuns.WithLabelValues("assistant").Inc()
	server := newTestServer(t, ServerOptions{Metrics: metrics})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cloudquill_chat_runs_total") {
		t.Fatal("metrics output missing chat runs counter")
	}
}

func TestStartAndShutdown(t *testing.T) {
	runner := &fakeRunner{events: []models.Event{
		{Message: "hi", Status: models.StatusAssistant, Timestamp: time.Now()},
	}}
	server := newTestServer(t, ServerOptions{Runner: runner, Config: Config{Host: "127.0.0.1", Port: 0}})

	ctx := context.Background()
	if err := server.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer server.Shutdown(ctx)

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}
