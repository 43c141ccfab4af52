// internal/tools/guard.go
// Screens tool invocations for destructive operations before execution.
package tools

import (
	"fmt"
	"regexp"
)

// destructivePatterns match tool arguments that indicate potentially
// destructive operations. A matching call is refused, never executed.
var destructivePatterns = []string{
	// File operations
	`rm\s+-rf`,
	`rm\s+.*-r`,
	`unlink`,

	// Git operations
	`git\s+push\s+--force`,
	`git\s+push\s+-f`,
	`git\s+reset\s+--hard`,
	`git\s+clean`,
	`git\s+branch\s+-D`,

	// Database operations
	`DROP\s+TABLE`,
	`DROP\s+DATABASE`,
	`TRUNCATE`,
	`DELETE\s+FROM\s+\w+\s*;`, // DELETE without WHERE

	// Service operations
	`systemctl\s+stop`,
	`kill\s+-9`,
	`pkill`,

	// Permission operations
	`chmod\s+777`,
	`chown.*root`,
}

var destructiveRegexes []*regexp.Regexp

func init() {
	destructiveRegexes = make([]*regexp.Regexp, len(destructivePatterns))
	for i, pattern := range destructivePatterns {
		destructiveRegexes[i] = regexp.MustCompile("(?i)" + pattern)
	}
}

// Guard rejects tool calls whose arguments look destructive.
type Guard struct {
	enabled bool
}

func NewGuard() *Guard {
	return &Guard{enabled: true}
}

// SetEnabled enables or disables screening.
func (g *Guard) SetEnabled(enabled bool) {
	g.enabled = enabled
}

// Screen returns an error naming the matched pattern when a call looks
// destructive, and nil otherwise.
func (g *Guard) Screen(call Call) error {
	if !g.enabled {
		return nil
	}
	for i, re := range destructiveRegexes {
		if re.MatchString(call.Arguments) {
			return fmt.Errorf("tool call %s blocked: arguments match destructive pattern %q", call.Name, destructivePatterns[i])
		}
	}
	return nil
}
