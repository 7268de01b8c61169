// Package notify announces new submissions to the team channel. Delivery is
// best-effort: a failed notification is logged and never affects the
// submission itself.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/feedback-fusion/backend/internal/models"
)

type Notifier interface {
	FeedbackSubmitted(ctx context.Context, f models.Feedback)
}

type Noop struct{}

func (Noop) FeedbackSubmitted(ctx context.Context, f models.Feedback) {}

type SlackNotifier struct {
	Client    *slack.Client
	ChannelID string
	Logger    zerolog.Logger
}

func NewSlackNotifier(token, channelID string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		Client:    slack.New(token),
		ChannelID: channelID,
		Logger:    logger,
	}
}

func (n *SlackNotifier) FeedbackSubmitted(ctx context.Context, f models.Feedback) {
	text := fmt.Sprintf("New feature request: *%s* [%s", f.Title, f.Category)
	if f.SubCategory != "" {
		text += " / " + f.SubCategory
	}
	text += "]"

	_, _, err := n.Client.PostMessageContext(ctx, n.ChannelID, slack.MsgOptionText(text, false))
	if err != nil {
		n.Logger.Warn().Err(err).Str("feedback_id", f.ID).Msg("slack notification failed")
	}
}
