package prompt

import (
	"bytes"
	"encoding/json"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat-completion context.
type Message struct {
	Role    Role
	Content string
}

// Turn is one well-formed message of caller-supplied history.
type Turn struct {
	Role Role
	Text string
}

// HistoryEntry is a history item as it arrives on the wire. Content may be any
// JSON value; only strings survive FilterHistory.
type HistoryEntry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON never fails. An item that is not an object, or whose role is
// not a string, decodes to the zero entry, which FilterHistory drops.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	*e = HistoryEntry{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}
	var role string
	if err := json.Unmarshal(fields["role"], &role); err != nil {
		return nil
	}
	e.Role = role
	e.Content = fields["content"]
	return nil
}

// History is caller-supplied history. A value that is not an array decodes
// to no history rather than an error.
type History []HistoryEntry

func (h *History) UnmarshalJSON(data []byte) error {
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		*h = nil
		return nil
	}
	*h = entries
	return nil
}

// FilterHistory keeps entries with a user/assistant role and string content,
// in order. Everything else is dropped silently.
func FilterHistory(entries []HistoryEntry) []Turn {
	turns := make([]Turn, 0, len(entries))
	for _, e := range entries {
		role := Role(e.Role)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		text, ok := stringContent(e.Content)
		if !ok {
			continue
		}
		turns = append(turns, Turn{Role: role, Text: text})
	}
	return turns
}

func stringContent(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
