package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/ccrelay/ccrelay/internal/claudecode"
	"github.com/ccrelay/ccrelay/internal/config"
	"github.com/ccrelay/ccrelay/internal/relay"
)

const (
	ackMessage        = "Instructions confirmed. Starting processing..."
	completionMessage = "✅ Claude Code processing completed"
)

// StreamSource opens one agent message stream per session. The socket
// implementation lives in the claudecode package; tests substitute
// scripted sources.
type StreamSource interface {
	Open(ctx context.Context, prompt string, opts claudecode.QueryOptions) (claudecode.MessageStream, error)
}

// Monitor runs the Slack Socket Mode event loop. Every qualifying
// inbound message becomes an independent session: acknowledge in the
// thread, resolve the channel configuration, open an agent stream, and
// hand it to the relay processor. Sessions run concurrently and share
// no mutable state.
type Monitor struct {
	socket    *socketmode.Client
	sink      relay.Sink
	processor *relay.Processor
	source    StreamSource
	cfg       *config.Config
	logger    *slog.Logger
}

// NewMonitor creates a monitor. All dependencies are required.
func NewMonitor(
	socket *socketmode.Client,
	sink relay.Sink,
	processor *relay.Processor,
	source StreamSource,
	cfg *config.Config,
	logger *slog.Logger,
) (*Monitor, error) {
	if socket == nil {
		return nil, fmt.Errorf("monitor creation failed: socket client is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("monitor creation failed: sink is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("monitor creation failed: processor is required")
	}
	if source == nil {
		return nil, fmt.Errorf("monitor creation failed: stream source is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("monitor creation failed: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		socket:    socket,
		sink:      sink,
		processor: processor,
		source:    source,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run starts the event loop and blocks until the context is canceled or
// the Socket Mode connection fails permanently.
func (m *Monitor) Run(ctx context.Context) error {
	go m.consumeEvents(ctx)

	if err := m.socket.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("socket mode connection failed: %w", err)
	}
	return nil
}

func (m *Monitor) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-m.socket.Events:
			if !ok {
				return
			}
			m.routeEvent(ctx, evt)
		}
	}
}

func (m *Monitor) routeEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		m.logger.DebugContext(ctx, "connecting to Slack")
	case socketmode.EventTypeConnected:
		m.logger.InfoContext(ctx, "connected to Slack")
	case socketmode.EventTypeConnectionError:
		m.logger.ErrorContext(ctx, "Slack connection error", slog.Any("data", evt.Data))
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			m.socket.Ack(*evt.Request)
		}
		m.handleEventsAPI(ctx, apiEvent)
	default:
	}
}

func (m *Monitor) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}

	ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	if m.shouldSkip(ev) {
		return
	}

	// Each inbound message is an independent session.
	go m.handleSession(ctx, ev)
}

// shouldSkip filters out our own traffic: bot posts, the agent's Slack
// user, message edits/deletes, and empty text.
func (m *Monitor) shouldSkip(ev *slackevents.MessageEvent) bool {
	if ev.BotID != "" || ev.SubType != "" {
		return true
	}
	if m.cfg.ClaudeUserID != "" && ev.User == m.cfg.ClaudeUserID {
		return true
	}
	return ev.Text == ""
}

// handleSession drives one inbound message end-to-end.
func (m *Monitor) handleSession(ctx context.Context, ev *slackevents.MessageEvent) {
	sessionID := uuid.NewString()
	thread := relay.Thread{ChannelID: ev.Channel, ThreadTS: threadTimestamp(ev)}

	m.logger.InfoContext(ctx, "message detected",
		slog.String("session_id", sessionID),
		slog.String("user_id", ev.User),
		slog.String("channel_id", ev.Channel),
		slog.String("thread_ts", thread.ThreadTS))
	m.logger.DebugContext(ctx, "message text",
		slog.String("session_id", sessionID),
		slog.String("text", ev.Text))

	if err := m.sink.Send(ctx, thread, ackMessage); err != nil {
		m.logger.ErrorContext(ctx, "failed to send acknowledgment",
			slog.Any("error", err),
			slog.String("session_id", sessionID))
	}

	channelCfg, err := m.cfg.ChannelConfig(ev.Channel)
	if err != nil {
		m.processor.HandleFailure(ctx, sessionID, thread, err, "Monitor.handleSession",
			fmt.Sprintf("Channel: %s, User: %s", ev.Channel, ev.User))
		return
	}

	opts := buildQueryOptions(channelCfg, m.cfg.SystemPrompt(thread.ThreadTS, ev.User, ev.Channel))

	stream, err := m.source.Open(ctx, buildPrompt(ev.Text), opts)
	if err != nil {
		m.processor.HandleFailure(ctx, sessionID, thread, err, "Monitor.handleSession",
			fmt.Sprintf("Channel: %s, User: %s", ev.Channel, ev.User))
		return
	}
	defer func() {
		_ = stream.Close()
	}()

	messages, err := m.processor.Run(ctx, sessionID, stream, thread)
	if err != nil {
		// Canceled session; the processor already logged the discard.
		return
	}

	if err := m.sink.Send(ctx, thread, completionMessage); err != nil {
		m.logger.ErrorContext(ctx, "failed to send completion notification",
			slog.Any("error", err),
			slog.String("session_id", sessionID))
	}

	m.logger.InfoContext(ctx, "session completed",
		slog.String("session_id", sessionID),
		slog.Int("messages", len(messages)))
}

// threadTimestamp picks the thread to reply in: the existing thread if
// the message is already threaded, else the message itself roots one.
func threadTimestamp(ev *slackevents.MessageEvent) string {
	if ev.ThreadTimeStamp != "" {
		return ev.ThreadTimeStamp
	}
	return ev.TimeStamp
}

func buildPrompt(userText string) string {
	return "Follow the user instructions received in Slack.\n\nUser instructions:\n" + userText
}

func buildQueryOptions(cfg config.ChannelConfig, systemPrompt string) claudecode.QueryOptions {
	return claudecode.QueryOptions{
		SystemPrompt:       systemPrompt,
		Cwd:                cfg.Cwd,
		PermissionMode:     cfg.PermissionMode,
		AllowedTools:       cfg.AllowedTools,
		DisallowedTools:    cfg.DisallowedTools,
		Model:              cfg.Model,
		MaxTurns:           cfg.MaxTurns,
		AppendSystemPrompt: cfg.AppendSystemPrompt,
		MaxThinkingTokens:  cfg.MaxThinkingTokens,
	}
}
