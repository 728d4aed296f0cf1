package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudquill/cloudquill/internal/sessions"
	"github.com/cloudquill/cloudquill/pkg/models"
)

// Fallback strings used when a prompt section has no content. The model
// sees these verbatim, so they are fixed rather than configurable.
const (
	noKnowledgeFallback = "No specific AWS knowledge found for this query."
	noContextFallback   = "No previous context."
)

const systemTemplate = `You are an AWS expert assistant with access to AWS automation tools.

Current Context:
%s

Relevant AWS Knowledge:
%s

Available Tools:
%s

Instructions:
1. Analyze the user's query carefully
2. Use the AWS knowledge provided to give accurate information
3. If the user wants to perform an AWS action, use the appropriate tool
4. For questions about AWS, provide detailed answers using the knowledge base
5. To call a tool, respond EXACTLY in this format:
%s
TOOL: tool_name
INPUT: {"key": "value"}
%s
6. Call at most one tool per reply
7. Always consider security best practices and cost implications
8. Format your responses in clear Markdown

Current time: %s`

// Composer builds the two model-facing message sequences for a run.
// Composition is deterministic for a fixed clock, transcript, snippet
// set, and catalog description.
type Composer struct {
	clock func() time.Time
}

// NewComposer creates a composer using the wall clock.
func NewComposer() *Composer {
	return &Composer{clock: time.Now}
}

// NewComposerWithClock creates a composer with a fixed clock for tests.
func NewComposerWithClock(clock func() time.Time) *Composer {
	return &Composer{clock: clock}
}

// FirstTurn builds the opening message sequence: system instructions
// carrying transcript context, knowledge snippets, and the tool catalog,
// followed by the user's message.
func (c *Composer) FirstTurn(userMessage string, snippets []models.KnowledgeSnippet, recent []sessions.Entry, catalogDescription string) []models.Message {
	system := fmt.Sprintf(systemTemplate,
		formatRecent(recent),
		formatSnippets(snippets),
		catalogDescription,
		MarkerStart,
		MarkerEnd,
		c.clock().Format(time.RFC1123),
	)

	return []models.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: userMessage},
	}
}

// FollowUp extends the first turn with the model's own reply and a
// synthetic user message carrying the raw tool outcome, asking for a
// final natural-language synthesis.
func (c *Composer) FollowUp(firstTurn []models.Message, assistantReply string, toolResult json.RawMessage) []models.Message {
	out := make([]models.Message, 0, len(firstTurn)+2)
	out = append(out, firstTurn...)
	out = append(out,
		models.Message{Role: models.RoleAssistant, Content: assistantReply},
		models.Message{Role: models.RoleUser, Content: fmt.Sprintf(
			"The tool execution completed with this result:\n%s\nPlease provide a helpful summary of what was done and any relevant information for the user.",
			string(toolResult))},
	)
	return out
}

func formatSnippets(snippets []models.KnowledgeSnippet) string {
	if len(snippets) == 0 {
		return noKnowledgeFallback
	}
	lines := make([]string, len(snippets))
	for i, s := range snippets {
		lines[i] = "- " + s.Text
	}
	return strings.Join(lines, "\n")
}

func formatRecent(recent []sessions.Entry) string {
	if len(recent) == 0 {
		return noContextFallback
	}
	lines := make([]string, len(recent))
	for i, e := range recent {
		label := "User"
		if e.Role == sessions.EntryAssistant {
			label = "Assistant"
		}
		lines[i] = fmt.Sprintf("%s: %s", label, e.Text)
	}
	return strings.Join(lines, "\n")
}
