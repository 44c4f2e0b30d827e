package claudecode

import "strings"

// Category partitions messages into tool/metadata traffic and
// user-facing content.
type Category int

const (
	// CategoryTool marks tool activity and metadata that should be
	// batched rather than relayed verbatim.
	CategoryTool Category = iota
	// CategoryContent marks text the user should see.
	CategoryContent
)

// String returns a short label for logging.
func (c Category) String() string {
	if c == CategoryTool {
		return "tool"
	}
	return "content"
}

// Classify decides whether a message represents tool activity or
// user-facing content. The text arguments must come from
// ExtractText(msg, false): classifying on the tool-info rendering would
// bias the outcome, since that rendering itself contains bracketed
// tool summaries.
//
// Decision order, first match wins:
//  1. An assistant message containing any tool_use or tool_result block.
//  2. A user message whose content is a list (tool_result payloads).
//  3. Text that looks like a structured payload: after trimming it
//     starts with "[" or "{", or contains "type": / "tool_use_id":.
//  4. No extractable text at all.
//
// Anything else is content.
func Classify(msg Message, text string, hasText bool) Category {
	switch m := msg.(type) {
	case *AssistantMessage:
		for _, block := range m.Content {
			switch block.(type) {
			case *ToolUseBlock, *ToolResultBlock:
				return CategoryTool
			}
		}
	case *UserMessage:
		if _, ok := m.Content.([]any); ok {
			return CategoryTool
		}
	}

	if hasText && looksStructured(text) {
		return CategoryTool
	}

	if !hasText {
		return CategoryTool
	}

	return CategoryContent
}

// looksStructured sniffs text that is really a JSON payload rendered as
// a string.
func looksStructured(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "[") ||
		strings.HasPrefix(trimmed, "{") ||
		strings.Contains(text, `"type":`) ||
		strings.Contains(text, `"tool_use_id":`)
}
