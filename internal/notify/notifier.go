// Package notify batches tool activity from an agent message stream
// into periodic count notifications, forwarding content immediately.
package notify

import (
	"fmt"

	"github.com/ccrelay/ccrelay/internal/claudecode"
)

// batchThreshold is the number of consecutive tool events that forces a
// count notification even without intervening content.
const batchThreshold = 10

// Notifier accumulates tool activity for one session and decides which
// notifications to emit for each incoming message.
//
// Tool events are not relayed individually. A count notification is
// emitted when tool events reach the batch threshold, when a content
// message arrives with tool activity pending, or at stream end via
// Flush. Within one emission the count notification always precedes the
// content text.
//
// A Notifier belongs to exactly one session and is not safe for
// concurrent use.
type Notifier struct {
	toolsCount int
}

// New creates a Notifier with a zero counter.
func New() *Notifier {
	return &Notifier{}
}

// Process classifies a message and returns the ordered list of
// notifications to relay for it. The list is empty for suppressed
// tool/metadata events.
func (n *Notifier) Process(msg claudecode.Message) []string {
	text, hasText := claudecode.ExtractText(msg, false)
	if claudecode.Classify(msg, text, hasText) == claudecode.CategoryTool {
		return n.recordToolUse()
	}

	// Forwarded text includes tool info so tool summaries inside an
	// otherwise content-bearing message survive the relay.
	forward, ok := claudecode.ExtractText(msg, true)
	return n.recordContent(forward, ok)
}

func (n *Notifier) recordToolUse() []string {
	n.toolsCount++

	if n.toolsCount%batchThreshold == 0 {
		count := n.toolsCount
		n.toolsCount = 0
		return []string{toolsUsedMessage(count)}
	}

	return []string{}
}

func (n *Notifier) recordContent(text string, hasText bool) []string {
	emissions := []string{}

	if n.toolsCount > 0 {
		emissions = append(emissions, toolsUsedMessage(n.toolsCount))
		n.toolsCount = 0
	}

	if hasText && text != "" {
		emissions = append(emissions, text)
	}

	return emissions
}

// Flush emits the pending tool count, if any, and resets the counter.
// Called once when the stream ends.
func (n *Notifier) Flush() []string {
	if n.toolsCount == 0 {
		return []string{}
	}
	count := n.toolsCount
	n.toolsCount = 0
	return []string{toolsUsedMessage(count)}
}

// ToolsCount returns the current pending counter.
func (n *Notifier) ToolsCount() int {
	return n.toolsCount
}

func toolsUsedMessage(count int) string {
	return fmt.Sprintf("Used tools %d times", count)
}
