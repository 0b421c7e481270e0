// Package presence maintains the per-user presence record in the users
// collection: online/offline status and the typing flag, keyed by identity
// id. Every write is an idempotent upsert of the caller's own record.
package presence

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/store"
)

type Status string

const (
	Online  Status = "online"
	Offline Status = "offline"
)

// Record is the stored presence document.
type Record struct {
	DisplayName string
	Status      Status
	Typing      bool
	LastSeen    store.Timestamp
}

// RecordFromDoc decodes a users-collection document.
func RecordFromDoc(d store.Doc) Record {
	return Record{
		DisplayName: d.Fields.String("displayName"),
		Status:      Status(d.Fields.String("status")),
		Typing:      d.Fields.Bool("typing"),
		LastSeen:    d.Fields.Timestamp("lastSeen"),
	}
}

// InitRecord seeds the presence record for a freshly created account:
// offline, not typing. Upsert semantics keep re-registration harmless.
func InitRecord(ctx context.Context, st store.Store, id, displayName string) error {
	fields := store.Fields{
		"displayName": displayName,
		"status":      string(Offline),
		"typing":      false,
		"lastSeen":    store.ServerTimestamp,
	}
	if err := st.UpsertMerge(ctx, store.Users, id, fields); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrPresenceWrite, err)
	}
	return nil
}

// Tracker writes the presence record of one identity. It never touches any
// other identity's record.
type Tracker struct {
	store store.Store
	id    string
	name  string
	log   zerolog.Logger
}

func NewTracker(st store.Store, identity *auth.Identity, log zerolog.Logger) *Tracker {
	return &Tracker{store: st, id: identity.ID, name: identity.Label(), log: log}
}

// SetStatus marks the user online or offline.
func (t *Tracker) SetStatus(ctx context.Context, s Status) error {
	return t.write(ctx, store.Fields{
		"status":   string(s),
		"lastSeen": store.ServerTimestamp,
	})
}

// SetTyping toggles the typing flag.
func (t *Tracker) SetTyping(ctx context.Context, typing bool) error {
	return t.write(ctx, store.Fields{
		"typing":   typing,
		"lastSeen": store.ServerTimestamp,
	})
}

// write updates the record in place, falling back to an upsert-merge when the
// update fails: a brand-new identity has no record yet, so the first write
// creates it. Only the fallback failing is surfaced.
func (t *Tracker) write(ctx context.Context, fields store.Fields) error {
	err := t.store.Update(ctx, store.Users, t.id, fields)
	if err == nil {
		return nil
	}
	t.log.Debug().Err(err).Str("user", t.id).Msg("presence update missed, merging")

	merged := store.Fields{"displayName": t.name}
	for k, v := range fields {
		merged[k] = v
	}
	if err := t.store.UpsertMerge(ctx, store.Users, t.id, merged); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrPresenceWrite, err)
	}
	return nil
}
