// Package slackbot provides the Slack transport: a thread messenger
// implementing the relay sink and a Socket Mode monitor that turns
// inbound messages into relay sessions.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/ccrelay/ccrelay/internal/relay"
)

// autoSendPrefix distinguishes relayed messages from ones a human typed.
const autoSendPrefix = "[Auto-sent] "

// PostMessageClient is the part of the Slack API the messenger uses
// (allows mocking in tests).
type PostMessageClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Messenger posts relay notifications into Slack threads.
type Messenger struct {
	client PostMessageClient
	logger *slog.Logger
}

var _ relay.Sink = (*Messenger)(nil)

// NewMessenger creates a Slack thread messenger.
func NewMessenger(client PostMessageClient, logger *slog.Logger) (*Messenger, error) {
	if client == nil {
		return nil, fmt.Errorf("messenger creation failed: slack client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{client: client, logger: logger}, nil
}

// Send posts text as a threaded reply, prefixed so readers can tell
// relayed output from human messages.
func (m *Messenger) Send(ctx context.Context, thread relay.Thread, text string) error {
	if thread.ChannelID == "" {
		return fmt.Errorf("channel ID cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("message cannot be empty")
	}

	options := []slack.MsgOption{
		slack.MsgOptionText(autoSendPrefix+text, false),
	}
	if thread.ThreadTS != "" {
		options = append(options, slack.MsgOptionTS(thread.ThreadTS))
	}

	_, _, err := m.client.PostMessageContext(ctx, thread.ChannelID, options...)
	if err != nil {
		return fmt.Errorf("failed to post thread reply: %w", err)
	}

	m.logger.DebugContext(ctx, "sent thread reply",
		slog.String("channel_id", thread.ChannelID),
		slog.Int("text_length", len(text)))

	return nil
}
