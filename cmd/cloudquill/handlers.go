package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudquill/cloudquill/internal/audit"
	"github.com/cloudquill/cloudquill/internal/chat"
	awsconn "github.com/cloudquill/cloudquill/internal/connectors/aws"
	"github.com/cloudquill/cloudquill/internal/config"
	"github.com/cloudquill/cloudquill/internal/gateway"
	"github.com/cloudquill/cloudquill/internal/knowledge"
	"github.com/cloudquill/cloudquill/internal/llm"
	"github.com/cloudquill/cloudquill/internal/observability"
	"github.com/cloudquill/cloudquill/internal/sessions"
	"github.com/cloudquill/cloudquill/pkg/models"
)

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := buildModelClient(cfg)
	if err != nil {
		return err
	}

	embeddingBase := cfg.Knowledge.EmbeddingBaseURL
	if embeddingBase == "" {
		embeddingBase = cfg.LLM.Ollama.BaseURL
	}
	embedder, err := knowledge.NewOllamaEmbedder(knowledge.OllamaEmbedderConfig{
		BaseURL: embeddingBase,
		Model:   cfg.Knowledge.EmbeddingModel,
	})
	if err != nil {
		return err
	}
	knowledgeStore, err := knowledge.Open(ctx, knowledge.Config{
		Path:     cfg.Knowledge.Path,
		Embedder: embedder,
		Seed:     cfg.Knowledge.Seed == nil || *cfg.Knowledge.Seed,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("open knowledge store: %w", err)
	}
	defer knowledgeStore.Close()

	auditStore, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer auditStore.Close()

	clients, err := awsconn.NewClients(ctx, awsconn.ClientConfig{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		return err
	}
	connector, err := awsconn.New(awsconn.ConnectorConfig{
		Clients:  clients,
		Recorder: auditStore,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	catalog := chat.NewCatalog(logger)
	descriptors, err := connector.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list connector tools: %w", err)
	}
	catalog.Register(ctx, connector, descriptors)

	store := sessions.NewStore(
		sessions.WithCap(cfg.Session.Cap),
		sessions.WithPreviewLen(cfg.Session.PreviewLength),
	)

	orchestrator := chat.NewOrchestrator(chat.OrchestratorConfig{
		Catalog:        catalog,
		Router:         chat.NewRouter(catalog, logger, metrics),
		Sessions:       store,
		Composer:       chat.NewComposer(),
		Model:          model,
		Knowledge:      knowledgeStore,
		Logger:         logger,
		Metrics:        metrics,
		KnowledgeLimit: cfg.Knowledge.SearchLimit,
		RecentContext:  cfg.Session.RecentContext,
	})

	server, err := gateway.NewServer(gateway.ServerOptions{
		Config: gateway.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		Runner:    orchestrator,
		Sessions:  store,
		Knowledge: knowledgeStore,
		History:   auditStore,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "cloudquill ready",
		"provider", cfg.LLM.Provider,
		"tools", catalog.Len())

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")
	return server.Shutdown(context.Background())
}

func buildModelClient(cfg *config.Config) (chat.ModelClient, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.LLM.Ollama.BaseURL,
			Model:   cfg.LLM.Ollama.Model,
			Timeout: cfg.LLM.Ollama.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// runChat posts one message to a running server and prints the NDJSON
// event stream as it arrives.
func runChat(ctx context.Context, serverURL, sessionID, message string) error {
	body, err := json.Marshal(map[string]string{
		"message":    message,
		"session_id": sessionID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(serverURL, "/")+"/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var event models.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		printEvent(event)
	}
	return scanner.Err()
}

func printEvent(event models.Event) {
	switch event.Status {
	case models.StatusAssistant:
		fmt.Println()
		fmt.Println(event.Message)
	case models.StatusError:
		fmt.Fprintf(os.Stderr, "error: %s\n", event.Message)
	default:
		fmt.Printf("[%s] %s\n", event.Status, event.Message)
		if len(event.ToolResult) > 0 {
			var pretty bytes.Buffer
			if json.Indent(&pretty, event.ToolResult, "", "  ") == nil {
				fmt.Println(pretty.String())
			}
		}
	}
}

func runSessionsClear(ctx context.Context, serverURL, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		strings.TrimRight(serverURL, "/")+"/sessions/"+sessionID, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		fmt.Printf("Session %q cleared.\n", sessionID)
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("session %q not found", sessionID)
	default:
		return fmt.Errorf("server returned %s", resp.Status)
	}
}
