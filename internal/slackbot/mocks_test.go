package slackbot

import (
	"context"
	"fmt"
	"sync"

	"github.com/slack-go/slack"

	"github.com/steveyegge/headsdown/internal/store"
	"github.com/steveyegge/headsdown/internal/team"
)

// recordedPost is a message captured by a mock, with the wire fields that
// matter to assertions pulled out of the opaque MsgOptions.
type recordedPost struct {
	token     string
	channelID string
	endpoint  string
	text      string
	threadTS  string
}

func parseOptions(token, channelID string, options ...slack.MsgOption) (recordedPost, error) {
	endpoint, values, err := slack.UnsafeApplyMsgOptions(token, channelID, "https://slack.test/api/", options...)
	if err != nil {
		return recordedPost{}, err
	}
	return recordedPost{
		token:     token,
		channelID: channelID,
		endpoint:  endpoint,
		text:      values.Get("text"),
		threadTS:  values.Get("thread_ts"),
	}, nil
}

// mockSlackAPI implements SlackAPI, capturing bot-token posts.
type mockSlackAPI struct {
	mu    sync.Mutex
	posts []recordedPost
}

func (m *mockSlackAPI) AuthTestContext(context.Context) (*slack.AuthTestResponse, error) {
	return &slack.AuthTestResponse{UserID: "UBOT"}, nil
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	post, err := parseOptions("xoxb-test", channelID, options...)
	if err != nil {
		return "", "", err
	}
	m.mu.Lock()
	m.posts = append(m.posts, post)
	m.mu.Unlock()
	return channelID, "1111.0001", nil
}

func (m *mockSlackAPI) allPosts() []recordedPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedPost(nil), m.posts...)
}

// delegateWorld is the shared state behind every mock Delegate a test's
// factory hands out, keyed by token so assertions can tell whose
// credential did what.
type delegateWorld struct {
	mu sync.Mutex

	// counterparts maps token -> channelID -> resolved counterpart user.
	counterparts map[string]map[string]string
	// resolveErr forces GetConversationInfo failures for a token.
	resolveErr map[string]error
	// postErr forces PostMessage failures for a token.
	postErr map[string]error

	posts         []recordedPost
	statusSet     []string // tokens that set the profile status
	statusCleared []string // tokens that cleared it
	statusErr     error
}

func newDelegateWorld() *delegateWorld {
	return &delegateWorld{
		counterparts: make(map[string]map[string]string),
		resolveErr:   make(map[string]error),
		postErr:      make(map[string]error),
	}
}

func (w *delegateWorld) setCounterpart(token, channelID, user string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.counterparts[token] == nil {
		w.counterparts[token] = make(map[string]string)
	}
	w.counterparts[token][channelID] = user
}

func (w *delegateWorld) factory() DelegateFactory {
	return func(token string) Delegate {
		return &mockDelegate{token: token, world: w}
	}
}

func (w *delegateWorld) allPosts() []recordedPost {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]recordedPost(nil), w.posts...)
}

type mockDelegate struct {
	token string
	world *delegateWorld
}

func (d *mockDelegate) GetConversationInfoContext(_ context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error) {
	d.world.mu.Lock()
	defer d.world.mu.Unlock()
	if err := d.world.resolveErr[d.token]; err != nil {
		return nil, err
	}
	user, ok := d.world.counterparts[d.token][input.ChannelID]
	if !ok {
		return nil, fmt.Errorf("channel_not_found")
	}
	ch := &slack.Channel{}
	ch.ID = input.ChannelID
	ch.User = user
	ch.IsIM = true
	return ch, nil
}

func (d *mockDelegate) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	d.world.mu.Lock()
	postErr := d.world.postErr[d.token]
	d.world.mu.Unlock()
	if postErr != nil {
		return "", "", postErr
	}
	post, err := parseOptions(d.token, channelID, options...)
	if err != nil {
		return "", "", err
	}
	d.world.mu.Lock()
	d.world.posts = append(d.world.posts, post)
	d.world.mu.Unlock()
	return channelID, "2222.0002", nil
}

func (d *mockDelegate) SetUserCustomStatusContext(context.Context, string, string, int64) error {
	d.world.mu.Lock()
	defer d.world.mu.Unlock()
	if d.world.statusErr != nil {
		return d.world.statusErr
	}
	d.world.statusSet = append(d.world.statusSet, d.token)
	return nil
}

func (d *mockDelegate) UnsetUserCustomStatusContext(context.Context) error {
	d.world.mu.Lock()
	defer d.world.mu.Unlock()
	if d.world.statusErr != nil {
		return d.world.statusErr
	}
	d.world.statusCleared = append(d.world.statusCleared, d.token)
	return nil
}

// newTestRig wires a Bot over an in-memory store with mock Slack traffic.
func newTestRig(roster string) (*Bot, *mockSlackAPI, *delegateWorld, store.Store) {
	api := &mockSlackAPI{}
	world := newDelegateWorld()
	st := store.NewMemoryStore()
	bot := newBotForTest(api, st, team.NewRoster(roster), world.factory())
	return bot, api, world, st
}

// seedMember puts a member in a known guard/credential state.
func seedMember(st store.Store, memberID string, guardOn bool, token string) {
	ctx := context.Background()
	_ = st.SetAvailability(ctx, memberID, store.AvailabilityRecord{GuardOn: guardOn})
	if token != "" {
		_ = st.SetCredential(ctx, memberID, store.CredentialRecord{Token: token})
	}
}
