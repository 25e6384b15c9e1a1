// Package team implements the allow-list of members who may use the
// heads-down guard. Membership checks are insensitive to case and to
// copy-paste artifacts (smart quotes, stray spaces) in the configured list.
package team

import "strings"

// Normalize canonicalizes a member identifier: whitespace trimmed,
// upper-cased, and any character outside [A-Z0-9] stripped. Slack user
// IDs survive this unchanged; pasted values with surrounding junk don't.
func Normalize(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range strings.ToUpper(strings.TrimSpace(id)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Roster is the immutable set of allowed members, computed once at startup.
// Members() preserves the configured order, which is the tie-break used by
// the DM routing pass (first configured, first matched).
type Roster struct {
	members []string
	index   map[string]struct{}
}

// NewRoster parses a comma-separated member list into a Roster.
// Empty entries and duplicates (after normalization) are dropped.
func NewRoster(configured string) *Roster {
	r := &Roster{index: make(map[string]struct{})}
	for _, raw := range strings.Split(configured, ",") {
		id := Normalize(raw)
		if id == "" {
			continue
		}
		if _, dup := r.index[id]; dup {
			continue
		}
		r.index[id] = struct{}{}
		r.members = append(r.members, id)
	}
	return r
}

// Contains reports whether the candidate id is on the allow-list.
// The candidate is normalized before lookup.
func (r *Roster) Contains(id string) bool {
	_, ok := r.index[Normalize(id)]
	return ok
}

// Members returns the canonical member ids in configured order.
func (r *Roster) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Size returns the number of members on the allow-list.
func (r *Roster) Size() int {
	return len(r.members)
}
