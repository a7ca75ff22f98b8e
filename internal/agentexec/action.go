package agentexec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action is the model's decision for one iteration: call a tool, ask the
// user something, or declare the task complete.
type Action struct {
	Type     string         `json:"type"` // "tool", "ask_user", "complete"
	Tool     string         `json:"tool,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
	Message  string         `json:"message,omitempty"`
	Thinking string         `json:"thinking,omitempty"`
}

const (
	ActionTool     = "tool"
	ActionAskUser  = "ask_user"
	ActionComplete = "complete"
)

// ParseAction decodes the model's response into an Action. Models wrap
// JSON in prose and code fences, so the object is located before
// decoding. A response with no JSON at all becomes a completion carrying
// the prose as its message; only malformed or unrecognized JSON is an
// error.
func ParseAction(response string) (*Action, error) {
	raw := extractJSONBlock(response)
	if raw == "" {
		raw = extractJSONObject(response)
	}
	if raw == "" {
		return &Action{Type: ActionComplete, Message: strings.TrimSpace(response)}, nil
	}

	var a Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}

	switch a.Type {
	case ActionTool:
		if a.Tool == "" {
			return nil, fmt.Errorf("tool action without a tool name")
		}
	case ActionAskUser:
		if a.Message == "" {
			return nil, fmt.Errorf("ask_user action without a message")
		}
	case ActionComplete:
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
	return &a, nil
}

// extractJSONBlock pulls JSON out of a ```json ... ``` code fence.
func extractJSONBlock(s string) string {
	start := strings.Index(s, "```json")
	if start == -1 {
		start = strings.Index(s, "```")
		if start == -1 {
			return ""
		}
	}

	nl := strings.Index(s[start:], "\n")
	if nl == -1 {
		return ""
	}
	start += nl + 1

	end := strings.LastIndex(s, "```")
	if end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start:end])
}

// extractJSONObject returns the first brace-balanced object in s.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
