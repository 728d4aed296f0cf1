package models

// Role indicates the author of a model-facing message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in an ordered model conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// KnowledgeSnippet is one ranked result from the knowledge lookup.
type KnowledgeSnippet struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float64           `json:"distance"`
}
