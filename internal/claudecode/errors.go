package claudecode

import "fmt"

// ConnectionError indicates the agent runner could not be reached or the
// connection failed mid-stream.
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// NotFoundError indicates the agent runner's socket does not exist,
// which almost always means the runner is not installed or not started.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agent runner not found at %s", e.Path)
}

// ProcessExitError indicates the agent process terminated with a
// non-zero exit code. The stream is aborted; messages decoded before the
// failure remain valid.
type ProcessExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessExitError) Error() string {
	msg := fmt.Sprintf("agent process failed (exit code: %d)", e.ExitCode)
	if e.Stderr != "" {
		msg += "\nError output: " + e.Stderr
	}
	return msg
}

// DecodeError indicates a malformed record in the agent's output stream.
// The stream is aborted at the bad record; there is no resumption.
type DecodeError struct {
	Line  string
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to decode agent stream record: %v", e.Cause)
	}
	return "failed to decode agent stream record"
}

func (e *DecodeError) Unwrap() error { return e.Cause }
