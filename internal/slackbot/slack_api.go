package slackbot

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of slack.Client methods the bot uses with
// its own bot token. This allows tests to substitute a mock implementation
// without a live Slack connection.
type SlackAPI interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Delegate abstracts the subset of slack.Client methods invoked with a
// member's delegated user token: resolving a DM counterpart, posting the
// redirect reply as the member, and the cosmetic status update.
type Delegate interface {
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	SetUserCustomStatusContext(ctx context.Context, statusText, statusEmoji string, statusExpiration int64) error
	UnsetUserCustomStatusContext(ctx context.Context) error
}

// DelegateFactory builds a Delegate for a stored user token. Injectable so
// tests can intercept per-member API traffic.
type DelegateFactory func(token string) Delegate

// NewSlackDelegate is the production DelegateFactory.
func NewSlackDelegate(token string) Delegate {
	return slack.New(token)
}
