package slackbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxEventBody caps inbound request bodies. Slack events are small; this
// just keeps a misbehaving client from ballooning memory.
const maxEventBody = 1 << 20

// Server is the bot's HTTP surface: the Slack event and command webhooks,
// the OAuth install/callback pair, health probes, and read-only debug
// endpoints.
type Server struct {
	bot    *Bot
	addr   string
	server *http.Server
}

// NewServer creates the HTTP server for the given bot.
func NewServer(bot *Bot, addr string) *Server {
	return &Server{bot: bot, addr: addr}
}

// Handler builds the route table. Split from Start so tests can drive it
// with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/events", s.handleEvents)
	mux.HandleFunc("POST /slack/commands", s.handleCommands)
	mux.HandleFunc("GET /oauth/callback", s.handleOAuthCallback)
	mux.HandleFunc("GET /install", s.handleInstall)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /debug/team", s.handleDebugTeam)
	mux.HandleFunc("GET /debug/credentials", s.handleDebugCredentials)

	// Per-route spans and request metrics flow to whatever otel provider
	// the deployment installs; with none configured this is a no-op.
	return otelhttp.NewHandler(mux, "slackbot",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

// Start begins serving and blocks until the context is canceled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("slackbot: serving HTTP on %s", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("slackbot: shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	}
}

// verifiedBody reads the request body and checks the Slack request
// signature. Verification itself is a thin SDK call.
func (s *Server) verifiedBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	sv, err := slack.NewSecretsVerifier(r.Header, s.bot.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("init verifier: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return nil, fmt.Errorf("verifier write: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return nil, fmt.Errorf("signature mismatch: %w", err)
	}
	return body, nil
}

// ---------- Events API ----------

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := s.verifiedBody(r)
	if err != nil {
		log.Printf("slackbot: rejected event request: %v", err)
		http.Error(w, "invalid request", http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		log.Printf("slackbot: unparseable event: %v", err)
		http.Error(w, "bad event payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var cr slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			http.Error(w, "bad challenge payload", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, cr.Challenge)
		return

	case slackevents.CallbackEvent:
		// Ack first; routing happens after the response is on the wire.
		w.WriteHeader(http.StatusOK)
		if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			go s.bot.HandleMessageEvent(ev)
		}
		return

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// ---------- Slash commands ----------

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	body, err := s.verifiedBody(r)
	if err != nil {
		log.Printf("slackbot: rejected command request: %v", err)
		http.Error(w, "invalid request", http.StatusUnauthorized)
		return
	}

	// SlashCommandParse consumes the form body, which verifiedBody already
	// drained; hand it a fresh reader.
	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		log.Printf("slackbot: unparseable slash command: %v", err)
		http.Error(w, "bad command payload", http.StatusBadRequest)
		return
	}

	// The empty 200 is the acknowledgment Slack's deadline wants; the
	// substantive reply arrives via the response URL.
	w.WriteHeader(http.StatusOK)
	go s.bot.HandleSlashCommand(cmd)
}

// ---------- OAuth ----------

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.bot.AuthorizeURL(), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if err := s.bot.VerifyState(q.Get("state")); err != nil {
		http.Error(w, "state mismatch: authorization rejected", http.StatusForbidden)
		return
	}

	memberID, err := s.bot.ExchangeAuthorizationCode(r.Context(), q.Get("code"))
	switch {
	case errors.Is(err, ErrMissingCode):
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	case errors.Is(err, ErrNotTeamMember):
		http.Error(w, "this Slack account is not on the configured team", http.StatusForbidden)
		return
	case errors.Is(err, ErrMalformedOAuthResponse):
		http.Error(w, "authorization response was missing the user grant", http.StatusBadGateway)
		return
	case err != nil:
		log.Printf("slackbot: oauth exchange failed: %v", err)
		http.Error(w, "authorization failed; the code may have expired or been used already", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "All set! headsdown can now reply to DMs on behalf of %s. You can close this tab.\n", memberID)
}

// ---------- Health and debug ----------

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.bot.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("waiting for slack auth"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleDebugTeam(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"members": s.bot.Roster().Members()})
}

func (s *Server) handleDebugCredentials(w http.ResponseWriter, r *http.Request) {
	holders, err := s.bot.CredentialHolders(r.Context())
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	sort.Strings(holders)
	writeJSON(w, map[string]any{"holders": holders})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("slackbot: error encoding debug response: %v", err)
	}
}
