package slackbot

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/steveyegge/headsdown/internal/team"
)

// HandleMessageEvent is the DM routing engine. For every inbound message
// notification it decides whether a redirect must be sent, on whose behalf,
// and posts at most one threaded reply into the same conversation.
//
// Errors never escape: there is no caller awaiting a response on the event
// path, so everything is logged and dropped.
func (b *Bot) HandleMessageEvent(ev *slackevents.MessageEvent) {
	// Applicability: plain root messages in one-to-one DMs with a sender.
	if ev.SubType != "" {
		return
	}
	if ev.ChannelType != "im" {
		return
	}
	if ev.ThreadTimeStamp != "" {
		// Threaded replies never trigger the guard; replying to our own
		// redirect would storm the thread.
		return
	}
	if ev.User == "" {
		return
	}

	// Anti-loop guard, half one: automated senders (including this bot's
	// own posts, which carry the member's identity but a bot_id) produce
	// no auto-reply at all.
	if ev.BotID != "" || ev.User == b.botID() {
		return
	}

	ctx := context.Background()
	sender := team.Normalize(ev.User)

	// First configured, first matched: roster order is the tie-break when
	// several guarded members could plausibly own the conversation.
	for _, member := range b.roster.Members() {
		avail, err := b.store.GetAvailability(ctx, member)
		if err != nil {
			log.Printf("slackbot: error reading availability for %s: %v", member, err)
			continue
		}
		if !avail.GuardOn {
			continue
		}

		cred, err := b.store.GetCredential(ctx, member)
		if err != nil {
			log.Printf("slackbot: error reading credential for %s: %v", member, err)
			continue
		}
		if cred == nil {
			// Guarded but never authorized: cannot act on their behalf.
			continue
		}

		// Anti-loop guard, half two: a guarded member's own message must
		// not produce any reply, from anyone. Abort the whole pass, not
		// just this candidate.
		if sender == member {
			log.Printf("slackbot: message from guarded member %s, skipping auto-reply", member)
			return
		}

		counterpart, err := b.resolveCounterpart(ctx, cred.Token, ev.Channel)
		if err != nil {
			// Inconclusive: this member may simply not be in this DM.
			// Other candidates still get their turn.
			log.Printf("slackbot: could not resolve counterpart of %s for %s: %v", ev.Channel, member, err)
			continue
		}
		if team.Normalize(counterpart) != sender {
			// The conversation doesn't pair this member with the sender.
			// Replying here would speak "as" the wrong person.
			continue
		}

		b.postRedirect(ctx, cred.Token, member, ev)
		return
	}
}

// resolveCounterpart uses a member's delegated credential to look up the
// other human participant of a one-to-one DM channel.
func (b *Bot) resolveCounterpart(ctx context.Context, token, channelID string) (string, error) {
	d := b.delegates(token)
	ch, err := d.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return "", err
	}
	if ch == nil || ch.User == "" {
		return "", fmt.Errorf("conversation %s has no counterpart user", channelID)
	}
	return ch.User, nil
}

// postRedirect posts the fixed redirect message into the triggering
// conversation as the guarded member, threaded under the inbound message.
func (b *Bot) postRedirect(ctx context.Context, token, member string, ev *slackevents.MessageEvent) {
	text := fmt.Sprintf(
		"I'm heads-down right now and not watching DMs. If it's urgent, please post in %s so the team can pick it up.",
		b.supportChannel)

	d := b.delegates(token)
	_, _, err := d.PostMessageContext(ctx, ev.Channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(ev.TimeStamp))
	if err != nil {
		log.Printf("slackbot: redirect reply for %s in %s failed: %v", member, ev.Channel, err)
		return
	}
	log.Printf("slackbot: redirected DM in %s on behalf of %s", ev.Channel, member)
}
