// Package relay drives one agent message stream per session, batching
// tool activity into notifications and translating upstream failures
// into fixed user-facing diagnostics.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ccrelay/ccrelay/internal/claudecode"
	"github.com/ccrelay/ccrelay/internal/notify"
)

// Thread identifies the chat thread a session posts into.
type Thread struct {
	ChannelID string
	ThreadTS  string
}

// Sink delivers one notification to a chat thread. Implementations post
// to Slack in production; tests substitute recorders.
type Sink interface {
	Send(ctx context.Context, thread Thread, text string) error
}

// Processor orchestrates sessions: it consumes a message stream,
// classifies and batches events through a per-session Notifier, forwards
// emissions to the sink in order, and owns the error-translation
// boundary. A single Processor serves concurrent sessions; all mutable
// session state lives in the per-Run Notifier.
type Processor struct {
	sink   Sink
	logger *slog.Logger
}

// ProcessorOption is a functional option for configuring a Processor.
type ProcessorOption func(*Processor) error

// NewProcessor creates a Processor posting to the given sink.
func NewProcessor(sink Sink, opts ...ProcessorOption) (*Processor, error) {
	if sink == nil {
		return nil, fmt.Errorf("processor creation failed: sink is required")
	}

	p := &Processor{
		sink:   sink,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return p, nil
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) error {
		if logger == nil {
			return fmt.Errorf("invalid option: logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// Run consumes the stream to completion and returns every message it
// collected. Upstream failures are caught here, never re-raised: the
// matched kind's remediation is posted to the thread, the full
// descriptor is logged, and collected messages are returned per the
// kind's partial-results policy. The only non-nil error Run returns is
// the context's, when the session is canceled.
//
// Sends are issued strictly in order and awaited one at a time, so a
// tool-count flush is always observed in the thread before the content
// it precedes.
func (p *Processor) Run(
	ctx context.Context,
	sessionID string,
	stream claudecode.MessageStream,
	thread Thread,
) ([]claudecode.Message, error) {
	notifier := notify.New()
	var collected []claudecode.Message

	p.logger.InfoContext(ctx, "starting agent stream",
		slog.String("session_id", sessionID),
		slog.String("channel_id", thread.ChannelID))

	for {
		msg, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			p.deliver(ctx, sessionID, thread, notifier.Flush())
			p.logger.InfoContext(ctx, "agent stream completed",
				slog.String("session_id", sessionID),
				slog.Int("messages", len(collected)))
			return collected, nil
		}
		if err != nil {
			return p.finishWithFailure(ctx, sessionID, thread, notifier, collected, err)
		}

		p.relayMessage(ctx, sessionID, thread, notifier, msg)
		collected = append(collected, msg)
	}
}

// relayMessage feeds one message through the notifier and forwards each
// resulting emission. Suppressed tool/metadata traffic is logged at
// debug level so it stays auditable without being user-visible.
func (p *Processor) relayMessage(
	ctx context.Context,
	sessionID string,
	thread Thread,
	notifier *notify.Notifier,
	msg claudecode.Message,
) {
	emissions := notifier.Process(msg)

	if len(emissions) == 0 {
		p.logger.DebugContext(ctx, "suppressed tools/metadata message",
			slog.String("session_id", sessionID),
			slog.String("message_type", claudecode.TypeName(msg)))
		return
	}

	p.deliver(ctx, sessionID, thread, emissions)
}

// deliver sends notifications sequentially, awaiting each before the
// next. Sink failures are logged and do not abort the session.
func (p *Processor) deliver(ctx context.Context, sessionID string, thread Thread, emissions []string) {
	for _, text := range emissions {
		p.logger.InfoContext(ctx, "relaying to thread",
			slog.String("session_id", sessionID),
			slog.Int("text_length", len(text)))

		if err := p.sink.Send(ctx, thread, text); err != nil {
			p.logger.ErrorContext(ctx, "failed to send thread reply",
				slog.Any("error", err),
				slog.String("session_id", sessionID),
				slog.String("channel_id", thread.ChannelID))
		}
	}
}

// finishWithFailure ends the session after an upstream failure. A
// canceled context discards any pending tool count: during shutdown the
// sink is assumed unusable, so nothing is posted and the discard is
// only logged.
func (p *Processor) finishWithFailure(
	ctx context.Context,
	sessionID string,
	thread Thread,
	notifier *notify.Notifier,
	collected []claudecode.Message,
	err error,
) ([]claudecode.Message, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		p.logger.WarnContext(ctx, "session canceled, discarding pending notifications",
			slog.String("session_id", sessionID),
			slog.Int("pending_tools_count", notifier.ToolsCount()))
		return collected, err
	}

	desc := p.HandleFailure(ctx, sessionID, thread, err, "Processor.Run",
		fmt.Sprintf("Session: %s, Channel: %s", sessionID, thread.ChannelID))

	p.logger.InfoContext(ctx, "collected messages before failure",
		slog.String("session_id", sessionID),
		slog.Int("messages", len(collected)))

	if desc.Kind.PartialResults() {
		p.deliver(ctx, sessionID, thread, notifier.Flush())
	}

	return collected, nil
}

// HandleFailure translates a failure, logs the full descriptor including
// its trace, and posts the remediation to the thread. If posting fails,
// a plain-text fallback is attempted; if that also fails the event is
// only logged. Callers outside the stream loop (configuration errors,
// stream-open failures) use this directly.
func (p *Processor) HandleFailure(
	ctx context.Context,
	sessionID string,
	thread Thread,
	err error,
	function string,
	errContext string,
) ErrorDescriptor {
	desc := Translate(err, function, errContext)

	p.logger.ErrorContext(ctx, "upstream failure",
		slog.String("session_id", sessionID),
		slog.String("kind", desc.Kind.String()),
		slog.String("message", desc.Message),
		slog.String("function", desc.Function),
		slog.String("context", desc.Context))
	p.logger.ErrorContext(ctx, "failure trace",
		slog.String("session_id", sessionID),
		slog.String("trace", desc.Trace))

	if sendErr := p.sink.Send(ctx, thread, desc.Remediation()); sendErr != nil {
		p.logger.ErrorContext(ctx, "failed to send remediation, trying fallback",
			slog.Any("error", sendErr),
			slog.String("session_id", sessionID))

		if fallbackErr := p.sink.Send(ctx, thread, desc.Fallback()); fallbackErr != nil {
			p.logger.ErrorContext(ctx, "failed to send fallback error message",
				slog.Any("error", fallbackErr),
				slog.String("session_id", sessionID))
		}
	}

	return desc
}
