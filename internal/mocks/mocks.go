// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/ccrelay/ccrelay/internal/claudecode"
	"github.com/ccrelay/ccrelay/internal/relay"
	"github.com/ccrelay/ccrelay/internal/slackbot"
)

// Compile-time checks to ensure mocks implement their interfaces.
var (
	_ relay.Sink               = (*MockSink)(nil)
	_ claudecode.MessageStream = (*ScriptedStream)(nil)
	_ slackbot.StreamSource    = (*MockStreamSource)(nil)
)

// SentMessage records one sink send.
type SentMessage struct {
	Thread relay.Thread
	Text   string
}

// MockSink is a test implementation of the relay sink that records every
// send. SendFunc, when set, decides the outcome per call.
type MockSink struct {
	mu    sync.Mutex
	sends []SentMessage
	err   error

	// SendFunc allows tests to fail selected sends.
	SendFunc func(thread relay.Thread, text string) error
}

// NewMockSink creates a recording sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Send implements relay.Sink.
func (m *MockSink) Send(_ context.Context, thread relay.Thread, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendFunc != nil {
		if err := m.SendFunc(thread, text); err != nil {
			return err
		}
	} else if m.err != nil {
		return m.err
	}

	m.sends = append(m.sends, SentMessage{Thread: thread, Text: text})
	return nil
}

// SetError makes every subsequent send fail with err.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of all recorded sends.
func (m *MockSink) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	sends := make([]SentMessage, len(m.sends))
	copy(sends, m.sends)
	return sends
}

// Texts returns just the text of each recorded send, in order.
func (m *MockSink) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, len(m.sends))
	for i, s := range m.sends {
		texts[i] = s.Text
	}
	return texts
}

// ScriptedStream replays a fixed message sequence, then terminates with
// io.EOF or a configured failure.
type ScriptedStream struct {
	mu       sync.Mutex
	messages []claudecode.Message
	index    int
	terminal error
	closed   bool
}

// NewScriptedStream creates a stream that yields the given messages.
func NewScriptedStream(messages ...claudecode.Message) *ScriptedStream {
	return &ScriptedStream{messages: messages}
}

// FailWith makes the stream end with err instead of io.EOF once the
// scripted messages run out.
func (s *ScriptedStream) FailWith(err error) *ScriptedStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminal = err
	return s
}

// Next implements claudecode.MessageStream.
func (s *ScriptedStream) Next(ctx context.Context) (claudecode.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index < len(s.messages) {
		msg := s.messages[s.index]
		s.index++
		return msg, nil
	}

	if s.terminal != nil {
		return nil, s.terminal
	}
	return nil, io.EOF
}

// Close implements claudecode.MessageStream.
func (s *ScriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *ScriptedStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OpenCall records one StreamSource.Open invocation.
type OpenCall struct {
	Prompt  string
	Options claudecode.QueryOptions
}

// MockStreamSource hands out a scripted stream and records the query it
// was opened with.
type MockStreamSource struct {
	mu     sync.Mutex
	stream claudecode.MessageStream
	err    error
	calls  []OpenCall
}

// NewMockStreamSource creates a source returning the given stream.
func NewMockStreamSource(stream claudecode.MessageStream) *MockStreamSource {
	return &MockStreamSource{stream: stream}
}

// SetError makes Open fail with err.
func (m *MockStreamSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Open implements slackbot.StreamSource.
func (m *MockStreamSource) Open(
	_ context.Context,
	prompt string,
	opts claudecode.QueryOptions,
) (claudecode.MessageStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, OpenCall{Prompt: prompt, Options: opts})
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

// Calls returns a copy of recorded Open calls.
func (m *MockStreamSource) Calls() []OpenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]OpenCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}
