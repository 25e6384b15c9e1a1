// Package slackbot implements the heads-down bot: team members toggle a
// per-member guard, and while it is on the bot answers their incoming DMs
// on their behalf, redirecting senders to the support channel. Replies and
// status updates are issued with each member's own delegated OAuth token,
// not the bot identity.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/slack-go/slack"

	"github.com/steveyegge/headsdown/internal/store"
	"github.com/steveyegge/headsdown/internal/team"
)

// Sentinel errors for the caller-visible failure categories. Anything not
// wrapped in one of these is an upstream failure: logged, never re-raised.
var (
	ErrNotTeamMember          = errors.New("not a configured team member")
	ErrStateMismatch          = errors.New("oauth state mismatch")
	ErrMissingCode            = errors.New("missing authorization code")
	ErrMalformedOAuthResponse = errors.New("oauth response missing authorized user")
)

// Bot is the heads-down Slack bot.
type Bot struct {
	client         SlackAPI
	store          store.Store
	roster         *team.Roster
	supportChannel string
	signingSecret  string
	debug          bool

	// OAuth exchange wiring
	clientID     string
	clientSecret string
	redirectURL  string
	stateSecret  string
	exchange     oauthExchangeFunc

	delegates DelegateFactory

	// Bot identity, resolved by Bootstrap; used for the anti-loop guard.
	// Atomic because Bootstrap runs concurrently with event dispatch.
	botUserID atomic.Pointer[string]
	ready     atomic.Bool
}

// botID returns the bot's own user id, or "" before Bootstrap resolves it.
func (b *Bot) botID() string {
	if id := b.botUserID.Load(); id != nil {
		return *id
	}
	return ""
}

// oauthExchangeFunc converts an authorization code into a token response.
// Injectable for tests; the default calls Slack's oauth.v2.access.
type oauthExchangeFunc func(ctx context.Context, code string) (*slack.OAuthV2Response, error)

// BotConfig holds configuration for the heads-down bot.
type BotConfig struct {
	BotToken       string // xoxb-... Slack bot token
	SigningSecret  string // request signature secret for the HTTP surface
	ClientID       string // Slack app client id (OAuth)
	ClientSecret   string // Slack app client secret (OAuth)
	RedirectURL    string // exact redirect URI registered with Slack
	StateSecret    string // shared anti-CSRF state value
	SupportChannel string // channel named in redirect replies, e.g. "#help-desk"
	Debug          bool
}

// NewBot creates a heads-down bot over the given roster and store.
func NewBot(cfg BotConfig, roster *team.Roster, st store.Store) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client credentials are required")
	}
	if cfg.StateSecret == "" {
		return nil, fmt.Errorf("oauth state secret is required")
	}
	if cfg.SupportChannel == "" {
		return nil, fmt.Errorf("support channel is required")
	}
	if roster == nil || roster.Size() == 0 {
		return nil, fmt.Errorf("team roster is empty")
	}

	client := slack.New(cfg.BotToken, slack.OptionDebug(cfg.Debug))

	b := &Bot{
		client:         client,
		store:          st,
		roster:         roster,
		supportChannel: cfg.SupportChannel,
		signingSecret:  cfg.SigningSecret,
		debug:          cfg.Debug,
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		redirectURL:    cfg.RedirectURL,
		stateSecret:    cfg.StateSecret,
		delegates:      NewSlackDelegate,
	}
	b.exchange = func(ctx context.Context, code string) (*slack.OAuthV2Response, error) {
		return slack.GetOAuthV2ResponseContext(ctx, http.DefaultClient,
			b.clientID, b.clientSecret, code, b.redirectURL)
	}
	return b, nil
}

// newBotForTest creates a Bot with injectable mock dependencies. No Slack
// connection or token validation is performed.
func newBotForTest(api SlackAPI, st store.Store, roster *team.Roster, delegates DelegateFactory) *Bot {
	b := &Bot{
		client:         api,
		store:          st,
		roster:         roster,
		supportChannel: "#help-desk",
		signingSecret:  "test-signing-secret",
		clientID:       "test-client",
		clientSecret:   "test-secret",
		redirectURL:    "https://example.com/oauth/callback",
		stateSecret:    "test-state",
		delegates:      delegates,
	}
	botID := "UBOT"
	b.botUserID.Store(&botID)
	b.ready.Store(true)
	return b
}

// Bootstrap resolves the bot's own user id, which the routing engine needs
// for the anti-loop guard. A failure is logged but not fatal: the bot can
// serve OAuth and commands without it, and BotID-based filtering still holds.
func (b *Bot) Bootstrap(ctx context.Context) {
	resp, err := b.client.AuthTestContext(ctx)
	if err != nil {
		log.Printf("slackbot: warning: auth test failed: %v", err)
		return
	}
	b.botUserID.Store(&resp.UserID)
	b.ready.Store(true)
	log.Printf("slackbot: bot user ID: %s", resp.UserID)
}

// Ready reports whether Bootstrap has completed successfully.
func (b *Bot) Ready() bool {
	return b.ready.Load()
}

// Roster returns the bot's allow-list.
func (b *Bot) Roster() *team.Roster {
	return b.roster
}

// CredentialHolders lists members currently holding a delegated credential.
func (b *Bot) CredentialHolders(ctx context.Context) ([]string, error) {
	return b.store.CredentialHolders(ctx)
}

// respond delivers follow-up text for a slash command via its response URL,
// visible only to the invoking user.
func (b *Bot) respond(channelID, responseURL, text string) {
	_, _, err := b.client.PostMessageContext(context.Background(), channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionResponseURL(responseURL, slack.ResponseTypeEphemeral))
	if err != nil {
		log.Printf("slackbot: error posting command response: %v", err)
	}
}
