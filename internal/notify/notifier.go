// Package notify pushes domain lifecycle events to the platform's
// operations channel so verification outcomes are visible without
// log spelunking.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Notifier delivers a human-readable event message. Implementations
// must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Nop is used when no notification backend is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// SlackNotifier posts messages to a Slack channel via the Web API.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// Compile-time interface check.
var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
	}
}

func (n *SlackNotifier) Notify(ctx context.Context, message string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(message, false))
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.Notify: %w", err)
	}
	return nil
}
