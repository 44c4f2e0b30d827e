package claudecode

import (
	"strings"
	"testing"
)

func TestExtractTextAssistant(t *testing.T) {
	tests := []struct {
		name            string
		msg             *AssistantMessage
		includeToolInfo bool
		want            string
		wantOK          bool
	}{
		{
			name: "two text blocks join with newline",
			msg: &AssistantMessage{Content: []ContentBlock{
				&TextBlock{Text: "a"},
				&TextBlock{Text: "b"},
			}},
			want:   "a\nb",
			wantOK: true,
		},
		{
			name: "tool use excluded without tool info",
			msg: &AssistantMessage{Content: []ContentBlock{
				&TextBlock{Text: "checking"},
				&ToolUseBlock{ID: "toolu_01", Name: "Bash", Input: map[string]any{"command": "ls"}},
			}},
			want:   "checking",
			wantOK: true,
		},
		{
			name: "tool use rendered with tool info",
			msg: &AssistantMessage{Content: []ContentBlock{
				&ToolUseBlock{ID: "toolu_01", Name: "Bash", Input: map[string]any{"command": "ls"}},
			}},
			includeToolInfo: true,
			want:            `[Tool: Bash(toolu_01)] Input: {"command":"ls"}`,
			wantOK:          true,
		},
		{
			name: "tool use without input omits input suffix",
			msg: &AssistantMessage{Content: []ContentBlock{
				&ToolUseBlock{ID: "toolu_02", Name: "Read"},
			}},
			includeToolInfo: true,
			want:            "[Tool: Read(toolu_02)]",
			wantOK:          true,
		},
		{
			name: "tool result string content",
			msg: &AssistantMessage{Content: []ContentBlock{
				&ToolResultBlock{Content: "ok"},
			}},
			includeToolInfo: true,
			want:            "[Tool Result: ok]",
			wantOK:          true,
		},
		{
			name: "tool result structured content is JSON",
			msg: &AssistantMessage{Content: []ContentBlock{
				&ToolResultBlock{Content: map[string]any{"status": "done"}},
			}},
			includeToolInfo: true,
			want:            `[Tool Result: {"status":"done"}]`,
			wantOK:          true,
		},
		{
			name: "tool result without content excluded",
			msg: &AssistantMessage{Content: []ContentBlock{
				&ToolResultBlock{},
			}},
			includeToolInfo: true,
			wantOK:          false,
		},
		{
			name:   "no blocks yields no text",
			msg:    &AssistantMessage{},
			wantOK: false,
		},
		{
			name: "only tool blocks without tool info yields no text",
			msg: &AssistantMessage{Content: []ContentBlock{
				&ToolUseBlock{ID: "toolu_03", Name: "Bash"},
				&ToolResultBlock{Content: "out"},
			}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractText(tt.msg, tt.includeToolInfo)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractTextUser(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		got, ok := ExtractText(&UserMessage{Content: "hello"}, false)
		if !ok || got != "hello" {
			t.Errorf("got %q (ok=%v), want %q", got, ok, "hello")
		}
	})

	t.Run("list content serializes to JSON", func(t *testing.T) {
		msg := &UserMessage{Content: []any{
			map[string]any{"type": "tool_result", "tool_use_id": "toolu_01"},
		}}
		got, ok := ExtractText(msg, false)
		if !ok {
			t.Fatal("expected text")
		}
		if !strings.Contains(got, `"tool_use_id": "toolu_01"`) {
			t.Errorf("JSON serialization missing field: %q", got)
		}
		if !strings.HasPrefix(strings.TrimSpace(got), "[") {
			t.Errorf("list should serialize to a JSON array: %q", got)
		}
	})

	t.Run("other content uses string form", func(t *testing.T) {
		got, ok := ExtractText(&UserMessage{Content: 42.0}, false)
		if !ok || got != "42" {
			t.Errorf("got %q (ok=%v), want %q", got, ok, "42")
		}
	})

	t.Run("empty string content is text", func(t *testing.T) {
		got, ok := ExtractText(&UserMessage{Content: ""}, false)
		if !ok || got != "" {
			t.Errorf("got %q (ok=%v), want empty text with ok=true", got, ok)
		}
	})
}

func TestExtractTextSystem(t *testing.T) {
	msg := &SystemMessage{Subtype: "init"}

	if _, ok := ExtractText(msg, false); ok {
		t.Error("system message should have no text without tool info")
	}

	got, ok := ExtractText(msg, true)
	if !ok || got != "[System: init]" {
		t.Errorf("got %q (ok=%v), want %q", got, ok, "[System: init]")
	}
}

func TestExtractTextResult(t *testing.T) {
	t.Run("result field preferred verbatim", func(t *testing.T) {
		msg := &ResultMessage{Subtype: "success", Result: "All done.", DurationMS: 1500, NumTurns: 3}
		for _, includeToolInfo := range []bool{false, true} {
			got, ok := ExtractText(msg, includeToolInfo)
			if !ok || got != "All done." {
				t.Errorf("includeToolInfo=%v: got %q (ok=%v)", includeToolInfo, got, ok)
			}
		}
	})

	t.Run("metadata summary only with tool info", func(t *testing.T) {
		msg := &ResultMessage{Subtype: "success", DurationMS: 1500, NumTurns: 3}

		if _, ok := ExtractText(msg, false); ok {
			t.Error("expected no text without tool info")
		}

		got, ok := ExtractText(msg, true)
		want := "[Result: success, Duration: 1500ms, Turns: 3]"
		if !ok || got != want {
			t.Errorf("got %q (ok=%v), want %q", got, ok, want)
		}
	})
}

func TestExtractTextUnknown(t *testing.T) {
	msg := &UnknownMessage{TypeName: "rate_limit_event"}

	if _, ok := ExtractText(msg, false); ok {
		t.Error("unknown message should have no text without tool info")
	}

	got, ok := ExtractText(msg, true)
	want := "[Unknown Message Type: rate_limit_event]"
	if !ok || got != want {
		t.Errorf("got %q (ok=%v), want %q", got, ok, want)
	}
}

// Extraction must be deterministic: identical inputs produce
// byte-identical output, including map-valued tool input.
func TestExtractTextDeterministic(t *testing.T) {
	msg := &AssistantMessage{Content: []ContentBlock{
		&ToolUseBlock{ID: "toolu_01", Name: "Bash", Input: map[string]any{
			"command": "ls",
			"timeout": 30.0,
			"cwd":     "/tmp",
		}},
	}}

	first, _ := ExtractText(msg, true)
	for i := 0; i < 50; i++ {
		got, _ := ExtractText(msg, true)
		if got != first {
			t.Fatalf("extraction not deterministic: %q vs %q", got, first)
		}
	}
}
