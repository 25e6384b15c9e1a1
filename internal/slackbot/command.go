package slackbot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/steveyegge/headsdown/internal/store"
	"github.com/steveyegge/headsdown/internal/team"
)

// Status shown on a member's profile while their guard is on.
const (
	guardStatusText  = "Heads-down, catching up async"
	guardStatusEmoji = ":no_bell:"
)

// HandleSlashCommand processes the /headsdown command. The HTTP layer has
// already acknowledged the request; everything here happens after the ack
// and reports back through the command's response URL.
//
// Arguments: on|enable|start force the guard on, off|disable|stop force it
// off, status reports without mutating, anything else (including empty)
// toggles.
func (b *Bot) HandleSlashCommand(cmd slack.SlashCommand) {
	ctx := context.Background()

	if !b.roster.Contains(cmd.UserID) {
		b.respond(cmd.ChannelID, cmd.ResponseURL,
			"Sorry, the heads-down guard is only available to the configured team.")
		return
	}
	memberID := team.Normalize(cmd.UserID)

	current, err := b.store.GetAvailability(ctx, memberID)
	if err != nil {
		log.Printf("slackbot: error reading availability for %s: %v", memberID, err)
		b.respond(cmd.ChannelID, cmd.ResponseURL, "Something went wrong reading your guard state. Try again.")
		return
	}

	arg := strings.ToLower(strings.TrimSpace(cmd.Text))

	var next bool
	switch arg {
	case "status":
		b.respond(cmd.ChannelID, cmd.ResponseURL, statusMessage(current))
		return
	case "on", "enable", "start":
		next = true
	case "off", "disable", "stop":
		next = false
	default:
		next = !current.GuardOn
	}

	rec := store.AvailabilityRecord{GuardOn: next, UpdatedAt: time.Now()}
	if err := b.store.SetAvailability(ctx, memberID, rec); err != nil {
		log.Printf("slackbot: error writing availability for %s: %v", memberID, err)
		b.respond(cmd.ChannelID, cmd.ResponseURL, "Something went wrong saving your guard state. Try again.")
		return
	}
	log.Printf("slackbot: guard for %s now %s", memberID, onOff(next))

	// Best effort: failure never blocks the transition or the reply.
	b.applyProfileStatus(ctx, memberID, next)

	if next {
		b.respond(cmd.ChannelID, cmd.ResponseURL, fmt.Sprintf(
			"Heads-down guard is *on*. DMs you receive will get an automatic redirect to %s. Run the command again to turn it off.",
			b.supportChannel))
	} else {
		b.respond(cmd.ChannelID, cmd.ResponseURL,
			"Heads-down guard is *off*. You're back on DM duty.")
	}
}

func statusMessage(rec store.AvailabilityRecord) string {
	if !rec.GuardOn {
		return "Heads-down guard is *off*."
	}
	if rec.UpdatedAt.IsZero() {
		return "Heads-down guard is *on*."
	}
	return fmt.Sprintf("Heads-down guard is *on* (since %s).",
		rec.UpdatedAt.Format("Jan 2 15:04 MST"))
}

// applyProfileStatus sets or clears the member's cosmetic Slack status
// using their delegated credential, if they have one. Failures are logged
// and swallowed.
func (b *Bot) applyProfileStatus(ctx context.Context, memberID string, guardOn bool) {
	cred, err := b.store.GetCredential(ctx, memberID)
	if err != nil {
		log.Printf("slackbot: error reading credential for %s: %v", memberID, err)
		return
	}
	if cred == nil {
		// Member never authorized; the guard still works, minus the status.
		return
	}

	d := b.delegates(cred.Token)
	if guardOn {
		if err := d.SetUserCustomStatusContext(ctx, guardStatusText, guardStatusEmoji, 0); err != nil {
			log.Printf("slackbot: status update for %s failed: %v", memberID, err)
		}
		return
	}
	if err := d.UnsetUserCustomStatusContext(ctx); err != nil {
		log.Printf("slackbot: status clear for %s failed: %v", memberID, err)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
