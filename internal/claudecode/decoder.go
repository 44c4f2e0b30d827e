package claudecode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// scannerInitialBuffer is the starting line buffer for the stream scanner.
	scannerInitialBuffer = 1024 * 1024
	// scannerMaxBuffer caps a single stream record at 10MB.
	scannerMaxBuffer = 10 * 1024 * 1024
)

// MessageStream is a pull iterator over a finite sequence of messages.
// Next returns io.EOF when the stream is exhausted; any other error
// terminates the stream and belongs to the failure taxonomy in this
// package (or is a context error).
type MessageStream interface {
	Next(ctx context.Context) (Message, error)
	Close() error
}

// StreamDecoder adapts a reader carrying newline-delimited JSON message
// records into a MessageStream. A terminal "exit" record from the runner
// ends the stream: exit code zero maps to io.EOF, non-zero to a
// ProcessExitError.
type StreamDecoder struct {
	scanner *bufio.Scanner
	done    bool
}

// NewStreamDecoder creates a decoder over r.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)
	return &StreamDecoder{scanner: scanner}
}

// Next returns the next decoded message. Malformed records return a
// DecodeError and terminate the stream; there is no resumption past a
// bad record.
func (d *StreamDecoder) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.done {
		return nil, io.EOF
	}

	for d.scanner.Scan() {
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if exit, code, stderr := isExitRecord(line); exit {
			d.done = true
			if code != 0 {
				return nil, &ProcessExitError{ExitCode: code, Stderr: stderr}
			}
			return nil, io.EOF
		}

		msg, err := ParseMessage(line)
		if err != nil {
			d.done = true
			return nil, err
		}
		return msg, nil
	}

	d.done = true
	if err := d.scanner.Err(); err != nil {
		return nil, &ConnectionError{Message: "reading agent stream", Cause: err}
	}
	return nil, io.EOF
}

// Close implements MessageStream. The decoder does not own the reader.
func (d *StreamDecoder) Close() error {
	d.done = true
	return nil
}

// isExitRecord checks for the runner's terminal framing record.
func isExitRecord(line []byte) (bool, int, string) {
	var rec struct {
		Type     string `json:"type"`
		ExitCode int    `json:"exit_code"`
		Stderr   string `json:"stderr"`
	}
	if err := json.Unmarshal(line, &rec); err != nil || rec.Type != "exit" {
		return false, 0, ""
	}
	return true, rec.ExitCode, rec.Stderr
}

// ParseMessage decodes one stream record into a Message. Records with an
// unrecognized type tag decode to UnknownMessage; only malformed JSON or
// a missing type tag is an error.
func ParseMessage(line []byte) (Message, error) {
	var env struct {
		Type       string          `json:"type"`
		Subtype    string          `json:"subtype"`
		Message    json.RawMessage `json:"message"`
		Result     string          `json:"result"`
		DurationMS int             `json:"duration_ms"`
		NumTurns   int             `json:"num_turns"`
		IsError    bool            `json:"is_error"`
		SessionID  string          `json:"session_id"`
		Data       map[string]any  `json:"data"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, &DecodeError{Line: string(line), Cause: err}
	}

	switch env.Type {
	case "assistant":
		return parseAssistant(line, env.Message)
	case "user":
		return parseUser(line, env.Message)
	case "system":
		return &SystemMessage{Subtype: env.Subtype, Data: env.Data}, nil
	case "result":
		return &ResultMessage{
			Subtype:    env.Subtype,
			Result:     env.Result,
			DurationMS: env.DurationMS,
			NumTurns:   env.NumTurns,
			IsError:    env.IsError,
			SessionID:  env.SessionID,
		}, nil
	case "":
		return nil, &DecodeError{Line: string(line), Cause: fmt.Errorf("record has no type tag")}
	default:
		return &UnknownMessage{TypeName: env.Type}, nil
	}
}

func parseAssistant(line, raw json.RawMessage) (Message, error) {
	var body struct {
		Model   string            `json:"model"`
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &DecodeError{Line: string(line), Cause: err}
	}

	blocks := make([]ContentBlock, 0, len(body.Content))
	for _, rawBlock := range body.Content {
		block, err := parseContentBlock(rawBlock)
		if err != nil {
			return nil, &DecodeError{Line: string(line), Cause: err}
		}
		if block != nil {
			blocks = append(blocks, block)
		}
	}

	return &AssistantMessage{Content: blocks, Model: body.Model}, nil
}

// parseContentBlock decodes one content block. Unrecognized block types
// return (nil, nil) and are dropped.
func parseContentBlock(raw json.RawMessage) (ContentBlock, error) {
	var block struct {
		Type    string          `json:"type"`
		Text    string          `json:"text"`
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Input   map[string]any  `json:"input"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("malformed content block: %w", err)
	}

	switch block.Type {
	case "text":
		return &TextBlock{Text: block.Text}, nil
	case "tool_use":
		return &ToolUseBlock{ID: block.ID, Name: block.Name, Input: block.Input}, nil
	case "tool_result":
		content, err := decodeOpaque(block.Content)
		if err != nil {
			return nil, fmt.Errorf("malformed tool_result content: %w", err)
		}
		return &ToolResultBlock{Content: content}, nil
	default:
		return nil, nil
	}
}

func parseUser(line, raw json.RawMessage) (Message, error) {
	var body struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &DecodeError{Line: string(line), Cause: err}
	}
	content, err := decodeOpaque(body.Content)
	if err != nil {
		return nil, &DecodeError{Line: string(line), Cause: err}
	}
	return &UserMessage{Content: content}, nil
}

// decodeOpaque unmarshals a raw value into its natural Go shape
// (string, []any, map[string]any, ...). Absent values decode to nil.
func decodeOpaque(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
