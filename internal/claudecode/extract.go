package claudecode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractText extracts the displayable text from a message. The second
// return value reports whether the message carried any text at all; an
// empty string with ok=true is a real (empty) text payload.
//
// With includeToolInfo=false only user-facing text is returned. With
// includeToolInfo=true, tool invocations, tool results, and metadata
// records are rendered as bracketed summaries.
//
// Extraction is a pure function of its inputs: identical inputs yield
// byte-identical output.
func ExtractText(msg Message, includeToolInfo bool) (string, bool) {
	switch m := msg.(type) {
	case *UserMessage:
		return extractUserText(m)
	case *AssistantMessage:
		return extractAssistantText(m, includeToolInfo)
	case *SystemMessage:
		if includeToolInfo {
			return fmt.Sprintf("[System: %s]", m.Subtype), true
		}
		return "", false
	case *ResultMessage:
		return extractResultText(m, includeToolInfo)
	case *UnknownMessage:
		if includeToolInfo {
			return fmt.Sprintf("[Unknown Message Type: %s]", m.TypeName), true
		}
		return "", false
	default:
		if includeToolInfo && msg != nil {
			return fmt.Sprintf("[Unknown Message Type: %s]", TypeName(msg)), true
		}
		return "", false
	}
}

// extractUserText handles the three shapes user content arrives in:
// plain string, list (tool results and similar), or anything else.
func extractUserText(m *UserMessage) (string, bool) {
	switch content := m.Content.(type) {
	case string:
		return content, true
	case []any:
		return marshalIndented(content), true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", content), true
	}
}

func extractAssistantText(m *AssistantMessage, includeToolInfo bool) (string, bool) {
	var parts []string

	for _, block := range m.Content {
		switch b := block.(type) {
		case *TextBlock:
			parts = append(parts, b.Text)
		case *ToolUseBlock:
			if !includeToolInfo {
				continue
			}
			info := fmt.Sprintf("[Tool: %s(%s)]", b.Name, b.ID)
			if len(b.Input) > 0 {
				info += " Input: " + marshalCompact(b.Input)
			}
			parts = append(parts, info)
		case *ToolResultBlock:
			if !includeToolInfo || b.Content == nil {
				continue
			}
			if s, ok := b.Content.(string); ok {
				parts = append(parts, fmt.Sprintf("[Tool Result: %s]", s))
			} else {
				parts = append(parts, fmt.Sprintf("[Tool Result: %s]", marshalCompact(b.Content)))
			}
		}
	}

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

func extractResultText(m *ResultMessage, includeToolInfo bool) (string, bool) {
	if m.Result != "" {
		return m.Result, true
	}
	if includeToolInfo {
		return fmt.Sprintf("[Result: %s, Duration: %dms, Turns: %d]",
			m.Subtype, m.DurationMS, m.NumTurns), true
	}
	return "", false
}

func marshalCompact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func marshalIndented(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
