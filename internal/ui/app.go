// internal/ui/app.go
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"conduit/internal/events"
	"conduit/internal/export"
	"conduit/internal/knowledge"
	"conduit/internal/message"
	"conduit/internal/orchestrator"
)

// KnowledgeSearcher retrieves knowledge hits to attach to a request.
type KnowledgeSearcher interface {
	SearchAll(query string, limit int) ([]knowledge.Hit, error)
}

// Options configures the chat front-end.
type Options struct {
	ProviderID string
	Model      string
	ExportDir  string
	Knowledge  KnowledgeSearcher // optional
}

// eventMsg wraps one orchestrator event for the bubbletea loop.
type eventMsg struct {
	event events.Event
}

// streamClosedMsg signals that the event channel closed.
type streamClosedMsg struct{}

// App is the single-conversation chat front-end. It drives the
// orchestrator and renders its event stream.
type App struct {
	orch       *orchestrator.Orchestrator
	providerID string
	model      string
	exportDir  string
	know       KnowledgeSearcher

	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	width, height int
	ready         bool

	history    []message.Message
	transcript []string

	streaming    bool
	thinking     bool
	thinkElapsed time.Duration
	curThinking  string
	curAnswer    string
	errText      string
	footer       string

	lastPrompt   string
	lastExchange *export.Exchange

	eventCh <-chan events.Event
	cancel  context.CancelFunc
}

func New(orch *orchestrator.Orchestrator, opts Options) *App {
	input := textinput.New()
	input.Placeholder = "Ask anything..."
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = ThinkingStyle

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))

	return &App{
		orch:       orch,
		providerID: opts.ProviderID,
		model:      opts.Model,
		exportDir:  opts.ExportDir,
		know:       opts.Knowledge,
		input:      input,
		spin:       spin,
		renderer:   renderer,
	}
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: evt}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if a.cancel != nil {
				a.cancel()
			}
			return a, tea.Quit
		case "esc":
			if a.streaming && a.cancel != nil {
				a.cancel()
			}
			return a, nil
		case "ctrl+e":
			if !a.streaming {
				a.exportCurrent()
			}
			return a, nil
		case "ctrl+p":
			if a.streaming {
				if a.orch.Paused() {
					a.orch.Resume()
				} else {
					a.orch.Pause()
				}
			}
			return a, nil
		case "enter":
			if !a.streaming && strings.TrimSpace(a.input.Value()) != "" {
				return a, a.send(a.input.Value())
			}
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		if a.thinking {
			return a, cmd
		}
		return a, nil

	case eventMsg:
		a.apply(msg.event)
		return a, waitForEvent(a.eventCh)

	case streamClosedMsg:
		a.finishStream()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) send(prompt string) tea.Cmd {
	a.history = append(a.history, message.Message{
		Role:  message.RoleUser,
		Parts: []message.Part{{Kind: message.PartText, Text: prompt}},
	})
	a.transcript = append(a.transcript, UserStyle.Render("you: ")+prompt)
	a.input.Reset()

	a.streaming = true
	a.errText = ""
	a.curThinking = ""
	a.curAnswer = ""
	a.footer = ""
	a.lastPrompt = prompt

	var hits []knowledge.Hit
	if a.know != nil {
		hits, _ = a.know.SearchAll(prompt, 5)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.eventCh = a.orch.Stream(ctx, orchestrator.Request{
		Model:         a.model,
		Messages:      a.history,
		KnowledgeHits: hits,
	})

	return tea.Batch(waitForEvent(a.eventCh), a.spin.Tick)
}

func (a *App) apply(evt events.Event) {
	switch evt.Type {
	case events.ThinkingDelta:
		a.thinking = true
		a.thinkElapsed = evt.Elapsed
		a.curThinking += evt.Text

	case events.ThinkingComplete:
		a.thinking = false
		a.thinkElapsed = evt.Elapsed
		a.curThinking = evt.Text

	case events.TextDelta:
		a.curAnswer += evt.Text

	case events.TextComplete:
		a.curAnswer = evt.Text

	case events.ErrorOccurred:
		if evt.Err != nil {
			a.errText = evt.Err.Error()
		}

	case events.BlockComplete:
		a.lastExchange = &export.Exchange{
			ID:        evt.RequestID,
			Model:     a.model,
			Prompt:    a.lastPrompt,
			Thinking:  a.curThinking,
			Answer:    a.curAnswer,
			Citations: evt.Citations,
			Usage:     evt.Usage,
			Metrics:   evt.Metrics,
			CreatedAt: time.Now(),
		}

		a.history = append(a.history, message.Message{
			Role:  message.RoleAssistant,
			Parts: []message.Part{{Kind: message.PartText, Text: a.curAnswer}},
		})

		rendered := a.curAnswer
		if a.renderer != nil {
			if out, err := a.renderer.Render(a.curAnswer); err == nil {
				rendered = strings.TrimRight(out, "\n")
			}
		}
		name := ProviderStyle(a.providerID).Render(a.providerID + ": ")
		a.transcript = append(a.transcript, name+rendered)

		for _, c := range evt.Citations {
			title := c.Title
			if title == "" {
				title = c.Hostname
			}
			a.transcript = append(a.transcript, CitationStyle.Render(fmt.Sprintf("  [%d] %s - %s", c.Number, title, c.URL)))
		}

		a.footer = footerLine(evt)
	}
}

func footerLine(evt events.Event) string {
	var parts []string
	if evt.Usage != nil {
		parts = append(parts, fmt.Sprintf("%d tokens", evt.Usage.TotalTokens))
	}
	if evt.Metrics != nil {
		parts = append(parts, fmt.Sprintf("first token %s", evt.Metrics.TimeToFirstToken.Round(time.Millisecond)))
		if evt.Metrics.ThinkingDuration > 0 {
			parts = append(parts, fmt.Sprintf("thought for %s", evt.Metrics.ThinkingDuration.Round(time.Millisecond)))
		}
		parts = append(parts, fmt.Sprintf("total %s", evt.Metrics.CompletionDuration.Round(time.Millisecond)))
	}
	return strings.Join(parts, " · ")
}

// exportCurrent writes the most recently completed exchange to the
// configured export directory.
func (a *App) exportCurrent() {
	if a.lastExchange == nil {
		a.footer = "nothing to export yet"
		return
	}
	path, err := export.WriteFile(a.exportDir, a.lastExchange)
	if err != nil {
		a.errText = "export: " + err.Error()
		return
	}
	a.footer = "exported to " + path
}

func (a *App) finishStream() {
	a.streaming = false
	a.thinking = false
	a.curThinking = ""
	a.curAnswer = ""
	a.cancel = nil
	a.eventCh = nil
}

func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("conduit · %s · %s", a.providerID, a.model)))
	sb.WriteString("\n\n")

	for _, line := range a.transcript {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if a.streaming {
		if a.orch.Paused() {
			sb.WriteString(DimStyle.Render("[paused - ctrl+p to resume]"))
			sb.WriteString("\n")
		} else if a.thinking {
			sb.WriteString(a.spin.View())
			sb.WriteString(ThinkingStyle.Render(fmt.Sprintf(" thinking... %s", a.thinkElapsed.Round(time.Second))))
			sb.WriteString("\n")
		}
		if a.curAnswer != "" {
			sb.WriteString(a.curAnswer)
			sb.WriteString("\n")
		}
	}

	if a.errText != "" {
		sb.WriteString(ErrorStyle.Render("error: " + a.errText))
		sb.WriteString("\n")
	}

	if a.footer != "" {
		sb.WriteString(DimStyle.Render(a.footer))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(PromptStyle.Render("> "))
	sb.WriteString(a.input.View())
	sb.WriteString("\n")
	sb.WriteString(DimStyle.Render("enter send · ctrl+p pause · ctrl+e export · esc cancel · ctrl+c quit"))

	return sb.String()
}
