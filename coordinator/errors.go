package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"menuagent"
)

// NoResponseMarker is returned as the answer text when the turn budget runs
// out before the service produced any text.
const NoResponseMarker = "[Agent reached max turns]"

// ErrToolsUnsupported is wrapped by clients whose model rejected the tool
// schema. The loop then finishes the run text-only.
var ErrToolsUnsupported = errors.New("model does not support tools")

// RunError is a terminal failure of one run. ToolLog holds the tool calls
// completed before the failing turn.
type RunError struct {
	Turn    int
	Err     error
	ToolLog []menuagent.ToolCallLog
}

func (e *RunError) Error() string {
	return fmt.Sprintf("turn %d: invoke failed: %v", e.Turn, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// toolsUnsupported reports whether err means the service cannot take tool
// schemas at all.
func toolsUnsupported(err error) bool {
	if errors.Is(err, ErrToolsUnsupported) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "tool") || strings.Contains(msg, "function")
}
