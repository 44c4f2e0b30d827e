package relay

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ccrelay/ccrelay/internal/claudecode"
	"github.com/ccrelay/ccrelay/internal/config"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantKind        ErrorKind
		wantPartial     bool
		wantRemediation string
	}{
		{
			name:            "validation error maps to configuration",
			err:             &config.ValidationError{ChannelID: "C123", Field: "cwd"},
			wantKind:        ErrorKindConfiguration,
			wantPartial:     false,
			wantRemediation: `🚨 Configuration error: missing required "cwd" configuration for channel C123`,
		},
		{
			name:            "wrapped validation error still matches",
			err:             fmt.Errorf("loading channel: %w", &config.ValidationError{ChannelID: "C123", Field: "permission_mode"}),
			wantKind:        ErrorKindConfiguration,
			wantPartial:     false,
			wantRemediation: `🚨 Configuration error: loading channel: missing required "permission_mode" configuration for channel C123`,
		},
		{
			name:            "not found error",
			err:             &claudecode.NotFoundError{Path: "/run/ccrelay/agent.sock"},
			wantKind:        ErrorKindNotFound,
			wantPartial:     false,
			wantRemediation: "❌ Claude Code CLI not found. Please check the installation.",
		},
		{
			name:            "connection error",
			err:             &claudecode.ConnectionError{Message: "failed to connect to agent runner", Cause: errors.New("refused")},
			wantKind:        ErrorKindConnection,
			wantPartial:     false,
			wantRemediation: "❌ An error occurred connecting to Claude Code. Please wait and try again.",
		},
		{
			name:            "decode error",
			err:             &claudecode.DecodeError{Line: "{bad", Cause: errors.New("unexpected token")},
			wantKind:        ErrorKindDecode,
			wantPartial:     true,
			wantRemediation: "⚠️ A data parsing error occurred during processing, but partial results will be provided.",
		},
		{
			name:            "process exit error carries the exit code",
			err:             &claudecode.ProcessExitError{ExitCode: 2, Stderr: "boom"},
			wantKind:        ErrorKindProcessExit,
			wantPartial:     true,
			wantRemediation: "⚠️ An error occurred in the Claude Code process (exit code: 2). Partial results will be provided.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Translate(tt.err, "Processor.Run", "Session: s1, Channel: C123")

			if desc.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", desc.Kind, tt.wantKind)
			}
			if desc.Kind.PartialResults() != tt.wantPartial {
				t.Errorf("partial results = %v, want %v", desc.Kind.PartialResults(), tt.wantPartial)
			}
			if !desc.Kind.Fatal() {
				t.Error("every kind is fatal")
			}
			if got := desc.Remediation(); got != tt.wantRemediation {
				t.Errorf("remediation = %q, want %q", got, tt.wantRemediation)
			}
			if desc.Trace == "" {
				t.Error("descriptor should capture a stack trace")
			}
		})
	}
}

func TestTranslateUnclassified(t *testing.T) {
	desc := Translate(errors.New("something odd"), "Monitor.handleSession", "Channel: C123, User: U456")

	if desc.Kind != ErrorKindUnclassified {
		t.Fatalf("kind = %v, want unclassified", desc.Kind)
	}
	if !desc.Kind.PartialResults() {
		t.Error("unclassified failures still deliver partial results")
	}

	remediation := desc.Remediation()
	for _, want := range []string{
		"*An error occurred*",
		"unclassified error",
		"something odd",
		"Monitor.handleSession",
		"Channel: C123, User: U456",
		"Detailed stack trace has been logged to the log file.",
	} {
		if !strings.Contains(remediation, want) {
			t.Errorf("detailed remediation missing %q:\n%s", want, remediation)
		}
	}

	// The raw trace never reaches the thread.
	if strings.Contains(remediation, "goroutine") {
		t.Error("detailed remediation must not include the stack trace")
	}
}

func TestDetailedWithoutContext(t *testing.T) {
	desc := ErrorDescriptor{Kind: ErrorKindUnclassified, Message: "odd", Function: "f"}

	if !strings.Contains(desc.Detailed(), "No context information available") {
		t.Errorf("detailed = %q", desc.Detailed())
	}
}

func TestFallback(t *testing.T) {
	desc := ErrorDescriptor{Kind: ErrorKindConnection, Message: "refused"}

	want := "An error occurred: connection error - refused"
	if got := desc.Fallback(); got != want {
		t.Errorf("fallback = %q, want %q", got, want)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrorKindConfiguration, "configuration error"},
		{ErrorKindConnection, "connection error"},
		{ErrorKindNotFound, "agent not found"},
		{ErrorKindDecode, "parsing error"},
		{ErrorKindProcessExit, "process error"},
		{ErrorKindUnclassified, "unclassified error"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
