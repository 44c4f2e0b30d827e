// Package claudecode models the message stream produced by a Claude Code
// agent runner and provides text extraction and classification over it.
package claudecode

// Message is a sealed interface representing one record in the agent's
// output stream. Use a type switch to handle the specific variants.
type Message interface {
	messageType() string
}

// UserMessage carries user-originated content echoed back by the agent.
// Content is either a string or a []any (tool_result payloads and other
// list-shaped content arrive as lists).
type UserMessage struct {
	Content any
}

func (m *UserMessage) messageType() string { return "user" }

// AssistantMessage carries an ordered sequence of content blocks produced
// by the model.
type AssistantMessage struct {
	Content []ContentBlock
	Model   string
}

func (m *AssistantMessage) messageType() string { return "assistant" }

// SystemMessage carries agent lifecycle metadata such as init info.
type SystemMessage struct {
	Subtype string
	Data    map[string]any
}

func (m *SystemMessage) messageType() string { return "system" }

// ResultMessage is the terminal summary record of a query.
type ResultMessage struct {
	Subtype    string
	Result     string
	DurationMS int
	NumTurns   int
	IsError    bool
	SessionID  string
}

func (m *ResultMessage) messageType() string { return "result" }

// UnknownMessage preserves records whose type the decoder does not
// recognize, so newer agent versions degrade gracefully.
type UnknownMessage struct {
	TypeName string
}

func (m *UnknownMessage) messageType() string { return "unknown" }

// TypeName returns the wire-level type tag of a message. Unknown messages
// report their original tag rather than "unknown".
func TypeName(m Message) string {
	if m == nil {
		return ""
	}
	if u, ok := m.(*UnknownMessage); ok {
		return u.TypeName
	}
	return m.messageType()
}

// ContentBlock is a sealed interface for one structured unit within an
// assistant message.
type ContentBlock interface {
	blockType() string
}

// TextBlock is plain display text.
type TextBlock struct {
	Text string
}

func (b *TextBlock) blockType() string { return "text" }

// ToolUseBlock records a tool invocation by the model.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

func (b *ToolUseBlock) blockType() string { return "tool_use" }

// ToolResultBlock records the result returned by a tool. Content is
// either a string or an opaque JSON-like value; nil means no content.
type ToolResultBlock struct {
	Content any
}

func (b *ToolResultBlock) blockType() string { return "tool_result" }
