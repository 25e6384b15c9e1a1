package slackbot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

func oauthResponse(userID, token, teamID string) *slack.OAuthV2Response {
	resp := &slack.OAuthV2Response{}
	resp.AuthedUser.ID = userID
	resp.AuthedUser.AccessToken = token
	resp.Team.ID = teamID
	return resp
}

func TestOAuth_VerifyState(t *testing.T) {
	bot, _, _, _ := newTestRig("UALICE")

	if err := bot.VerifyState("test-state"); err != nil {
		t.Fatalf("matching state rejected: %v", err)
	}
	if err := bot.VerifyState("wrong"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
	if err := bot.VerifyState(""); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("empty state must be rejected, got %v", err)
	}
}

func TestOAuth_SuccessfulExchangePersistsCredential(t *testing.T) {
	bot, _, _, st := newTestRig("UALICE")
	bot.exchange = func(_ context.Context, code string) (*slack.OAuthV2Response, error) {
		if code != "good-code" {
			t.Fatalf("exchange called with code %q", code)
		}
		return oauthResponse("Ualice", "xoxp-new", "T1"), nil
	}

	memberID, err := bot.ExchangeAuthorizationCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("ExchangeAuthorizationCode: %v", err)
	}
	if memberID != "UALICE" {
		t.Fatalf("member id = %q, want normalized UALICE", memberID)
	}

	cred, err := st.GetCredential(context.Background(), "UALICE")
	if err != nil || cred == nil {
		t.Fatalf("credential not stored: cred=%v err=%v", cred, err)
	}
	if cred.Token != "xoxp-new" || cred.TeamID != "T1" {
		t.Fatalf("stored credential %+v", cred)
	}
	if cred.UpdatedAt.IsZero() {
		t.Error("credential UpdatedAt not set")
	}
}

func TestOAuth_UpstreamRejectionLeavesStoreUnchanged(t *testing.T) {
	bot, _, _, st := newTestRig("UALICE")
	bot.exchange = func(context.Context, string) (*slack.OAuthV2Response, error) {
		return nil, errors.New("invalid_code")
	}

	_, err := bot.ExchangeAuthorizationCode(context.Background(), "replayed-code")
	if err == nil {
		t.Fatal("expected an error for a rejected code")
	}
	if !strings.Contains(err.Error(), "invalid_code") {
		t.Errorf("upstream cause lost: %v", err)
	}

	holders, _ := st.CredentialHolders(context.Background())
	if len(holders) != 0 {
		t.Fatalf("store must stay unchanged after rejection, got %v", holders)
	}
}

func TestOAuth_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *slack.OAuthV2Response
	}{
		{name: "nil response", resp: nil},
		{name: "missing user id", resp: oauthResponse("", "xoxp-new", "T1")},
		{name: "missing token", resp: oauthResponse("UALICE", "", "T1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, _, _, st := newTestRig("UALICE")
			bot.exchange = func(context.Context, string) (*slack.OAuthV2Response, error) {
				return tt.resp, nil
			}

			_, err := bot.ExchangeAuthorizationCode(context.Background(), "some-code")
			if !errors.Is(err, ErrMalformedOAuthResponse) {
				t.Fatalf("expected ErrMalformedOAuthResponse, got %v", err)
			}
			holders, _ := st.CredentialHolders(context.Background())
			if len(holders) != 0 {
				t.Fatalf("store must stay unchanged, got %v", holders)
			}
		})
	}
}

func TestOAuth_NonMemberGrantRejected(t *testing.T) {
	bot, _, _, st := newTestRig("UALICE")
	bot.exchange = func(context.Context, string) (*slack.OAuthV2Response, error) {
		return oauthResponse("UEVE", "xoxp-eve", "T1"), nil
	}

	_, err := bot.ExchangeAuthorizationCode(context.Background(), "some-code")
	if !errors.Is(err, ErrNotTeamMember) {
		t.Fatalf("expected ErrNotTeamMember, got %v", err)
	}
	holders, _ := st.CredentialHolders(context.Background())
	if len(holders) != 0 {
		t.Fatalf("stranger's credential must not be stored, got %v", holders)
	}
}

func TestOAuth_MissingCode(t *testing.T) {
	bot, _, _, _ := newTestRig("UALICE")
	called := false
	bot.exchange = func(context.Context, string) (*slack.OAuthV2Response, error) {
		called = true
		return nil, nil
	}

	_, err := bot.ExchangeAuthorizationCode(context.Background(), "")
	if !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
	if called {
		t.Fatal("upstream must not be contacted without a code")
	}
}

func TestOAuth_AuthorizeURL(t *testing.T) {
	bot, _, _, _ := newTestRig("UALICE")

	u := bot.AuthorizeURL()
	for _, want := range []string{
		"https://slack.com/oauth/v2/authorize?",
		"client_id=test-client",
		"state=test-state",
		"user_scope=",
		"redirect_uri=",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("authorize URL %q missing %q", u, want)
		}
	}
}
