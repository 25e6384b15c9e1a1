// Package store persists per-member availability and delegated-credential
// records. All backings share the same contract: single-key last-writer-wins
// overwrites, reads never fail on a cold store (they return defaults), and
// a key's value transitions atomically from old to new under concurrent use.
package store

import (
	"context"
	"time"
)

// AvailabilityRecord is a member's heads-down guard flag. The zero value
// (guard off) is what a read returns when no record has been written yet.
type AvailabilityRecord struct {
	GuardOn   bool      `json:"guard_on"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialRecord holds a member's delegated Slack user token plus the
// workspace metadata returned by the OAuth exchange. Written exclusively
// by the OAuth callback; read by the command handler and routing engine.
type CredentialRecord struct {
	Token        string    `json:"token"`
	TeamID       string    `json:"team_id,omitempty"`
	EnterpriseID string    `json:"enterprise_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store is the shared persistence contract. Implementations: in-memory
// (volatile), JSON file, and Redis, selected at startup.
//
// GetCredential returns nil with no error when the member has no stored
// credential; GetAvailability returns the zero record in the same case.
type Store interface {
	GetAvailability(ctx context.Context, memberID string) (AvailabilityRecord, error)
	SetAvailability(ctx context.Context, memberID string, rec AvailabilityRecord) error

	GetCredential(ctx context.Context, memberID string) (*CredentialRecord, error)
	SetCredential(ctx context.Context, memberID string, rec CredentialRecord) error

	// CredentialHolders returns the member ids that currently hold a
	// delegated credential, for the debug endpoint. Order is unspecified.
	CredentialHolders(ctx context.Context) ([]string, error)

	Close() error
}
