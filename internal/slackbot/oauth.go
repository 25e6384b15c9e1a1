package slackbot

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/steveyegge/headsdown/internal/store"
	"github.com/steveyegge/headsdown/internal/team"
)

// User scopes requested during install. The delegated token must be able
// to read DM metadata, post as the member, and set their profile status.
const oauthUserScopes = "chat:write,im:read,users.profile:write"

// AuthorizeURL builds the Slack authorization URL the install page
// redirects to, carrying the client id, requested user scopes, callback
// URL, and the shared state secret.
func (b *Bot) AuthorizeURL() string {
	q := url.Values{}
	q.Set("client_id", b.clientID)
	q.Set("user_scope", oauthUserScopes)
	q.Set("redirect_uri", b.redirectURL)
	q.Set("state", b.stateSecret)
	return "https://slack.com/oauth/v2/authorize?" + q.Encode()
}

// VerifyState checks the anti-CSRF state from an OAuth callback against
// the configured shared secret. Must pass before the code is sent upstream.
func (b *Bot) VerifyState(state string) error {
	if state != b.stateSecret {
		return ErrStateMismatch
	}
	return nil
}

// ExchangeAuthorizationCode trades a single-use authorization code for a
// delegated user token and persists the resulting credential. Returns the
// canonical member id the credential belongs to.
//
// A replayed or rejected code surfaces as an upstream error; a response
// without an authorized-user block surfaces as ErrMalformedOAuthResponse.
// Neither touches the credential store.
func (b *Bot) ExchangeAuthorizationCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}

	resp, err := b.exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oauth exchange rejected: %w", err)
	}
	if resp == nil || resp.AuthedUser.ID == "" || resp.AuthedUser.AccessToken == "" {
		return "", ErrMalformedOAuthResponse
	}

	memberID := team.Normalize(resp.AuthedUser.ID)
	if !b.roster.Contains(memberID) {
		// A stranger completing the install flow must not leave a
		// credential behind.
		return "", fmt.Errorf("authorized user %s: %w", memberID, ErrNotTeamMember)
	}

	rec := store.CredentialRecord{
		Token:        resp.AuthedUser.AccessToken,
		TeamID:       resp.Team.ID,
		EnterpriseID: resp.Enterprise.ID,
		UpdatedAt:    time.Now(),
	}
	if err := b.store.SetCredential(ctx, memberID, rec); err != nil {
		return "", fmt.Errorf("persist credential for %s: %w", memberID, err)
	}

	log.Printf("slackbot: stored delegated credential for %s (team=%s)", memberID, resp.Team.ID)
	return memberID, nil
}
