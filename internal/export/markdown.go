// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"conduit/internal/citation"
	"conduit/internal/events"
	"conduit/internal/provider"
)

// Exchange contains the data needed to export a completed completion.
type Exchange struct {
	ID        string
	Model     string
	Prompt    string
	Thinking  string
	Answer    string
	Citations []citation.Citation
	Usage     *provider.Usage
	Metrics   *events.Metrics
	CreatedAt time.Time
}

// Markdown generates a formatted markdown string from an exchange.
func Markdown(x *Exchange) string {
	var sb strings.Builder

	sb.WriteString("# Conversation Export\n\n")

	// Metadata section
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("**Request ID:** `%s`\n\n", x.ID))
	sb.WriteString(fmt.Sprintf("**Model:** `%s`\n\n", x.Model))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n\n", x.CreatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString("---\n\n")

	sb.WriteString("## Prompt\n\n")
	sb.WriteString(x.Prompt)
	sb.WriteString("\n\n")

	if x.Thinking != "" {
		sb.WriteString("## Thinking\n\n")
		sb.WriteString("> ")
		sb.WriteString(strings.ReplaceAll(strings.TrimSpace(x.Thinking), "\n", "\n> "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Answer\n\n")
	sb.WriteString(x.Answer)
	sb.WriteString("\n")

	if len(x.Citations) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for _, c := range x.Citations {
			title := c.Title
			if title == "" {
				title = c.Hostname
			}
			sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", c.Number, title, c.URL))
		}
	}

	if x.Usage != nil || x.Metrics != nil {
		sb.WriteString("\n---\n\n")
		if x.Usage != nil {
			sb.WriteString(fmt.Sprintf("**Tokens:** %d prompt / %d completion / %d total\n\n",
				x.Usage.PromptTokens, x.Usage.CompletionTokens, x.Usage.TotalTokens))
		}
		if x.Metrics != nil {
			sb.WriteString(fmt.Sprintf("**Latency:** first token %s, first content %s, thinking %s, total %s\n",
				x.Metrics.TimeToFirstToken.Round(time.Millisecond),
				x.Metrics.TimeToFirstContent.Round(time.Millisecond),
				x.Metrics.ThinkingDuration.Round(time.Millisecond),
				x.Metrics.CompletionDuration.Round(time.Millisecond)))
		}
	}

	return sb.String()
}

// WriteFile writes the exchange to a timestamped markdown file in dir,
// returning the full path.
func WriteFile(dir string, x *Exchange) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("conduit-%s-%s.md", x.CreatedAt.Format("20060102-150405"), shortID(x.ID))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(Markdown(x)), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
