package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudquill/cloudquill/pkg/models"
)

func TestNewOllamaClientRequiresModel(t *testing.T) {
	if _, err := NewOllamaClient(OllamaConfig{}); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestNewOpenAIClientValidation(t *testing.T) {
	if _, err := NewOpenAIClient(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := NewOpenAIClient(OpenAIConfig{Model: "gpt-4o-mini"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOllamaChat(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Stream   *bool  `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"granite3.1","message":{"role":"assistant","content":"pong"},"done":true}` + "\n"))
	}))
	defer server.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "granite3.1"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}

	reply, err := client.Chat(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "ping"},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "pong" {
		t.Fatalf("reply = %q", reply)
	}

	if gotReq.Model != "granite3.1" {
		t.Fatalf("request model = %q", gotReq.Model)
	}
	if gotReq.Stream == nil || *gotReq.Stream {
		t.Fatal("request must disable streaming")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "ping" {
		t.Fatalf("request messages = %+v", gotReq.Messages)
	}
}

func TestOllamaChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "missing"})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}

	_, err = client.Chat(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error from server failure")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Provider != "ollama" {
		t.Fatalf("error = %v, want ollama ProviderError", err)
	}
}

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", Model: "gpt-4o-mini", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	reply, err := client.Chat(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewProviderError("ollama", inner)
	if !errors.Is(err, inner) {
		t.Fatal("Unwrap() lost the inner error")
	}
}
