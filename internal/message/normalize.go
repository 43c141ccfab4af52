// internal/message/normalize.go
package message

import (
	"strings"

	"conduit/internal/attach"
)

const (
	// developerPrefix is prepended to system prompts remapped to the
	// developer role, as the o1-family models expect.
	developerPrefix = "Formatting re-enabled"

	// attachmentDivider separates flattened attachment content from the
	// message text for models without structured-content support.
	attachmentDivider = "\n\n---\n\n"
)

// Normalizer converts application messages into vendor-ready request
// messages according to the target model's capabilities.
type Normalizer struct {
	caps  Capabilities
	files attach.Reader
}

func NewNormalizer(caps Capabilities, files attach.Reader) *Normalizer {
	return &Normalizer{caps: caps, files: files}
}

// Normalize maps the ordered input messages to request messages. It is a
// pure function of its inputs: the same messages and capabilities always
// produce the same output, and the input is never mutated.
func (n *Normalizer) Normalize(msgs []Message) []RequestMessage {
	out := make([]RequestMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, n.normalizeOne(msg))
	}
	if n.caps.StrictAlternation {
		out = enforceAlternation(out)
	}
	return out
}

func (n *Normalizer) normalizeOne(msg Message) RequestMessage {
	role := string(msg.Role)
	text := msg.Text()

	if msg.Role == RoleSystem && n.caps.DeveloperRole {
		role = string(RoleDeveloper)
		text = developerPrefix + "\n" + text
	}

	if !n.caps.StructuredContent {
		return RequestMessage{Role: role, Content: n.flatten(msg, text)}
	}

	parts := n.structured(msg, text)
	if parts == nil {
		return RequestMessage{Role: role, Content: text}
	}
	return RequestMessage{Role: role, Parts: parts}
}

// flatten folds attachment content into the message text, one divider and
// `file:` header per attachment.
func (n *Normalizer) flatten(msg Message, text string) string {
	var sb strings.Builder
	sb.WriteString(text)
	for _, p := range msg.Parts {
		switch p.Kind {
		case PartFile:
			sb.WriteString(attachmentDivider)
			sb.WriteString("file: " + p.Name + "\n")
			sb.WriteString(strings.TrimSpace(n.readFile(p.Ref)))
		case PartImage:
			sb.WriteString(attachmentDivider)
			sb.WriteString("file: " + p.Name)
		}
	}
	return sb.String()
}

// structured builds the part-array form. Returns nil when the message is
// text-only, so it can be sent in the cheaper plain form.
func (n *Normalizer) structured(msg Message, text string) []ContentPart {
	var parts []ContentPart
	if text != "" {
		parts = append(parts, ContentPart{Type: "text", Text: text})
	}

	hasAttachment := false
	for _, p := range msg.Parts {
		switch p.Kind {
		case PartImage:
			if !n.caps.Vision {
				continue
			}
			hasAttachment = true
			parts = append(parts, ContentPart{Type: "image_url", ImageURL: n.imageURL(p.Ref)})
		case PartFile:
			hasAttachment = true
			parts = append(parts, ContentPart{Type: "text", Text: strings.TrimSpace(n.readFile(p.Ref))})
		}
	}

	if !hasAttachment {
		return nil
	}
	return parts
}

// readFile resolves attachment text, treating unreadable content as empty
// rather than failing the whole normalization.
func (n *Normalizer) readFile(ref string) string {
	if n.files == nil {
		return ""
	}
	content, err := n.files.Read(ref)
	if err != nil {
		return ""
	}
	return content
}

// imageURL passes already-remote references through and inlines local
// ones as base64 data URLs.
func (n *Normalizer) imageURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	if n.files == nil {
		return ""
	}
	url, err := n.files.Base64Image(ref)
	if err != nil {
		return ""
	}
	return url
}

// enforceAlternation inserts an empty message of the opposite role
// between any two consecutive user or assistant entries.
func enforceAlternation(msgs []RequestMessage) []RequestMessage {
	out := make([]RequestMessage, 0, len(msgs))
	for _, msg := range msgs {
		if len(out) > 0 {
			prev := out[len(out)-1].Role
			if prev == msg.Role && (msg.Role == string(RoleUser) || msg.Role == string(RoleAssistant)) {
				out = append(out, RequestMessage{Role: opposite(msg.Role)})
			}
		}
		out = append(out, msg)
	}
	return out
}

func opposite(role string) string {
	if role == string(RoleUser) {
		return string(RoleAssistant)
	}
	return string(RoleUser)
}
