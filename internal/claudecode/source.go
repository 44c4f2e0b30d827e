package claudecode

import (
	"context"
	"encoding/json"
	"net"
	"os"
)

// DefaultSocketPath is where the agent runner exposes its socket.
const DefaultSocketPath = "/run/ccrelay/agent.sock"

// QueryOptions carries the per-session settings forwarded to the agent
// runner. The relay treats these as opaque input; they are assembled
// from the channel configuration by the caller.
type QueryOptions struct {
	SystemPrompt       string   `json:"system_prompt,omitempty"`
	Cwd                string   `json:"cwd"`
	PermissionMode     string   `json:"permission_mode"`
	AllowedTools       []string `json:"allowed_tools,omitempty"`
	DisallowedTools    []string `json:"disallowed_tools,omitempty"`
	Model              string   `json:"model,omitempty"`
	MaxTurns           int      `json:"max_turns,omitempty"`
	AppendSystemPrompt string   `json:"append_system_prompt,omitempty"`
	MaxThinkingTokens  int      `json:"max_thinking_tokens,omitempty"`
}

// queryRequest is the single request record written to the runner when a
// session opens.
type queryRequest struct {
	Prompt  string       `json:"prompt"`
	Options QueryOptions `json:"options"`
}

// SocketSource opens message streams against an agent runner listening
// on a Unix domain socket. The runner owns the agent process lifecycle;
// this side only connects, sends one query, and reads the reply stream.
type SocketSource struct {
	socketPath string
}

// NewSocketSource creates a source for the runner socket at path. An
// empty path selects DefaultSocketPath.
func NewSocketSource(path string) *SocketSource {
	if path == "" {
		path = DefaultSocketPath
	}
	return &SocketSource{socketPath: path}
}

// Path returns the runner socket path this source dials.
func (s *SocketSource) Path() string {
	return s.socketPath
}

// Open dials the runner, submits one query, and returns the resulting
// message stream. A missing socket maps to NotFoundError; dial and write
// failures map to ConnectionError.
func (s *SocketSource) Open(ctx context.Context, prompt string, opts QueryOptions) (MessageStream, error) {
	if _, err := os.Stat(s.socketPath); os.IsNotExist(err) {
		return nil, &NotFoundError{Path: s.socketPath}
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", s.socketPath)
	if err != nil {
		return nil, &ConnectionError{Message: "failed to connect to agent runner", Cause: err}
	}

	req := queryRequest{Prompt: prompt, Options: opts}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Message: "failed to send query to agent runner", Cause: err}
	}

	return &socketStream{conn: conn, decoder: NewStreamDecoder(conn)}, nil
}

// socketStream binds a decoder to the connection it reads from so that
// closing the stream releases the connection.
type socketStream struct {
	conn    net.Conn
	decoder *StreamDecoder
}

func (s *socketStream) Next(ctx context.Context) (Message, error) {
	return s.decoder.Next(ctx)
}

func (s *socketStream) Close() error {
	return s.conn.Close()
}
