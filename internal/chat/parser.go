package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The invocation grammar is deliberately rigid: an exact marker pair
// enclosing exactly two non-empty lines, a tool name and a JSON object.
// Anything else is either ordinary prose (no markers at all) or a parse
// error. There is no fuzzy recovery; a model that wants a tool run must
// reproduce the format exactly.
const (
	MarkerStart = "---TOOL_START---"
	MarkerEnd   = "---TOOL_END---"

	toolPrefix  = "TOOL:"
	inputPrefix = "INPUT:"
)

// Invocation is a structured tool call extracted from model output.
type Invocation struct {
	ToolName string
	Input    json.RawMessage
}

// ParseError reports a malformed invocation block. It is fatal to the
// current run but never to the conversation.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed tool call: %s", e.Reason)
}

// ParseInvocation scans a model reply for at most one embedded tool
// call. It returns (nil, nil) when no markers are present — the text is
// ordinary prose. A block that deviates from the grammar in any way
// yields a *ParseError. Only the first well-delimited block is
// considered; later blocks are ignored.
func ParseInvocation(text string) (*Invocation, error) {
	start := strings.Index(text, MarkerStart)
	endAny := strings.Index(text, MarkerEnd)

	if start == -1 && endAny == -1 {
		return nil, nil
	}
	if start == -1 {
		return nil, &ParseError{Reason: "missing begin marker"}
	}

	bodyStart := start + len(MarkerStart)
	endRel := strings.Index(text[bodyStart:], MarkerEnd)
	if endRel == -1 {
		return nil, &ParseError{Reason: "missing end marker"}
	}

	body := text[bodyStart : bodyStart+endRel]
	lines := nonEmptyLines(body)
	if len(lines) != 2 {
		return nil, &ParseError{Reason: fmt.Sprintf("expected 2 lines inside markers, got %d", len(lines))}
	}

	if !strings.HasPrefix(lines[0], toolPrefix) {
		return nil, &ParseError{Reason: "first line must start with " + toolPrefix}
	}
	name := strings.TrimSpace(strings.TrimPrefix(lines[0], toolPrefix))
	if name == "" {
		return nil, &ParseError{Reason: "empty tool name"}
	}

	if !strings.HasPrefix(lines[1], inputPrefix) {
		return nil, &ParseError{Reason: "second line must start with " + inputPrefix}
	}
	rawInput := strings.TrimSpace(strings.TrimPrefix(lines[1], inputPrefix))

	// The input must decode as a JSON object; a partial or best-effort
	// decode is never returned.
	var obj map[string]any
	if err := json.Unmarshal([]byte(rawInput), &obj); err != nil || obj == nil {
		return nil, &ParseError{Reason: "invalid JSON input"}
	}

	return &Invocation{ToolName: name, Input: json.RawMessage(rawInput)}, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
