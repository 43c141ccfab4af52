// internal/message/message.go
package message

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
)

// PartKind identifies a content part within a Message.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
	PartFile  PartKind = "file"
)

// Part is one ordered content part of an application-level message.
// Text parts carry Text; image and file parts carry a Ref resolved
// through the attachment reader, plus a display Name.
type Part struct {
	Kind PartKind
	Text string
	Name string
	Ref  string
}

// Message is an application-level conversation message. Owned by the
// caller; read-only to everything in this repository.
type Message struct {
	ID    string
	Role  Role
	Parts []Part
}

// Text returns the message's first text part, or the empty string.
func (m Message) Text() string {
	for _, p := range m.Parts {
		if p.Kind == PartText {
			return p.Text
		}
	}
	return ""
}

// Capabilities are the target-model flags that steer normalization.
type Capabilities struct {
	Vision            bool // accepts image content parts
	StructuredContent bool // accepts array-form message content
	StrictAlternation bool // requires alternating user/assistant roles
	DeveloperRole     bool // wants system framed as developer
}

// ContentPart is one structured content entry of a RequestMessage.
type ContentPart struct {
	Type     string `json:"type"` // "text" or "image_url"
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// RequestMessage is the normalized, vendor-ready form of a message.
// Immutable once built; the tool-call loop only ever appends new ones.
// When Parts is nil the content is the plain Content string.
type RequestMessage struct {
	Role       string
	Content    string
	Parts      []ContentPart
	ToolCallID string
}

// MarshalJSON emits content as a plain string or a part array, matching
// what chat-completion style endpoints expect.
func (m RequestMessage) MarshalJSON() ([]byte, error) {
	out := map[string]any{"role": m.Role}
	if m.Parts != nil {
		out["content"] = m.Parts
	} else {
		out["content"] = m.Content
	}
	if m.ToolCallID != "" {
		out["tool_call_id"] = m.ToolCallID
	}
	return json.Marshal(out)
}

// PlainText returns the textual content of a request message regardless
// of which form it carries.
func (m RequestMessage) PlainText() string {
	if m.Parts == nil {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == "text" {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}
