// internal/tools/parser.go
package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// Call is one tool invocation parsed from model output markup.
type Call struct {
	ID        string
	Name      string
	Arguments string
}

var (
	callPattern = regexp.MustCompile(`(?s)<tool_use>(.*?)</tool_use>`)
	namePattern = regexp.MustCompile(`(?s)<name>(.*?)</name>`)
	argsPattern = regexp.MustCompile(`(?s)<arguments>(.*?)</arguments>`)
)

// ParseCalls extracts tool invocations from answer text. Blocks without
// a name are skipped. IDs are positional within the given text.
func ParseCalls(text string) []Call {
	blocks := callPattern.FindAllStringSubmatch(text, -1)
	if len(blocks) == 0 {
		return nil
	}

	calls := make([]Call, 0, len(blocks))
	for i, block := range blocks {
		body := block[1]

		name := namePattern.FindStringSubmatch(body)
		if name == nil || strings.TrimSpace(name[1]) == "" {
			continue
		}

		call := Call{
			ID:   fmt.Sprintf("call_%d", i),
			Name: strings.TrimSpace(name[1]),
		}
		if args := argsPattern.FindStringSubmatch(body); args != nil {
			call.Arguments = strings.TrimSpace(args[1])
		}
		calls = append(calls, call)
	}
	return calls
}
