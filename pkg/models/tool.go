package models

import "encoding/json"

// ToolDescriptor describes one callable operation advertised by a
// backend connector. Names are unique within a catalog; the last
// connector to register a name owns it.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}
