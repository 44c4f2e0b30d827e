package relay

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/ccrelay/ccrelay/internal/claudecode"
	"github.com/ccrelay/ccrelay/internal/config"
)

// ErrorKind is the closed taxonomy of upstream failures. Every failure
// caught at the relay boundary maps to exactly one kind; the kind alone
// determines the user-facing remediation text and whether messages
// collected before the failure are still delivered.
type ErrorKind int

const (
	// ErrorKindUnclassified covers anything the taxonomy does not name.
	ErrorKindUnclassified ErrorKind = iota
	// ErrorKindConfiguration is a missing or invalid per-session setting.
	ErrorKindConfiguration
	// ErrorKindConnection means the agent runner could not be reached.
	ErrorKindConnection
	// ErrorKindNotFound means the agent runner is not installed/started.
	ErrorKindNotFound
	// ErrorKindDecode is a malformed record mid-stream.
	ErrorKindDecode
	// ErrorKindProcessExit means the agent exited with a non-zero code.
	ErrorKindProcessExit
)

// String returns the kind's label for logs and detailed error posts.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfiguration:
		return "configuration error"
	case ErrorKindConnection:
		return "connection error"
	case ErrorKindNotFound:
		return "agent not found"
	case ErrorKindDecode:
		return "parsing error"
	case ErrorKindProcessExit:
		return "process error"
	default:
		return "unclassified error"
	}
}

// PartialResults reports whether messages collected before a failure of
// this kind are still delivered to the thread.
func (k ErrorKind) PartialResults() bool {
	switch k {
	case ErrorKindDecode, ErrorKindProcessExit, ErrorKindUnclassified:
		return true
	default:
		return false
	}
}

// Fatal reports whether this kind terminates the session. Every kind in
// the taxonomy is fatal; the stream is single-attempt.
func (k ErrorKind) Fatal() bool {
	return true
}

// ErrorDescriptor is the structured form of a caught upstream failure.
// The full descriptor including Trace goes to the diagnostic log; only
// the remediation text (and, for unclassified failures, the detailed
// block without the trace) is ever forwarded to the thread.
type ErrorDescriptor struct {
	Kind     ErrorKind
	Message  string
	Function string
	Context  string
	ExitCode int
	Trace    string
}

// Translate maps a raised failure to its descriptor. The function name
// and context identify where the failure surfaced; the stack trace is
// captured at the moment of translation.
func Translate(err error, function, context string) ErrorDescriptor {
	desc := ErrorDescriptor{
		Kind:     classifyError(err),
		Message:  err.Error(),
		Function: function,
		Context:  context,
		Trace:    string(debug.Stack()),
	}

	var exitErr *claudecode.ProcessExitError
	if errors.As(err, &exitErr) {
		desc.ExitCode = exitErr.ExitCode
	}

	return desc
}

func classifyError(err error) ErrorKind {
	if config.IsValidationError(err) {
		return ErrorKindConfiguration
	}

	var notFound *claudecode.NotFoundError
	if errors.As(err, &notFound) {
		return ErrorKindNotFound
	}

	var conn *claudecode.ConnectionError
	if errors.As(err, &conn) {
		return ErrorKindConnection
	}

	var decode *claudecode.DecodeError
	if errors.As(err, &decode) {
		return ErrorKindDecode
	}

	var exit *claudecode.ProcessExitError
	if errors.As(err, &exit) {
		return ErrorKindProcessExit
	}

	return ErrorKindUnclassified
}

// Remediation returns the fixed user-facing text for this failure. Raw
// traces and internal type names never appear here.
func (d ErrorDescriptor) Remediation() string {
	switch d.Kind {
	case ErrorKindConfiguration:
		return "🚨 Configuration error: " + d.Message
	case ErrorKindConnection:
		return "❌ An error occurred connecting to Claude Code. Please wait and try again."
	case ErrorKindNotFound:
		return "❌ Claude Code CLI not found. Please check the installation."
	case ErrorKindDecode:
		return "⚠️ A data parsing error occurred during processing, but partial results will be provided."
	case ErrorKindProcessExit:
		return fmt.Sprintf(
			"⚠️ An error occurred in the Claude Code process (exit code: %d). Partial results will be provided.",
			d.ExitCode)
	default:
		return d.Detailed()
	}
}

// Detailed formats the descriptor as a thread post for failures with no
// fixed remediation. The trace is deliberately omitted; it lives in the
// diagnostic log only.
func (d ErrorDescriptor) Detailed() string {
	context := d.Context
	if context == "" {
		context = "No context information available"
	}

	return fmt.Sprintf(`🚨 *An error occurred*

*Error Type*: %s
*Error Message*: %s
*Location*: %s

*Details*:
%s

Detailed stack trace has been logged to the log file.`,
		d.Kind, d.Message, d.Function, "```\n"+context+"\n```")
}

// Fallback is the minimal plain-text form used when sending the
// remediation itself fails.
func (d ErrorDescriptor) Fallback() string {
	return fmt.Sprintf("An error occurred: %s - %s", d.Kind, d.Message)
}
