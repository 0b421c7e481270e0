package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/prompt"
	"github.com/emberworks/emberchat/internal/store"
)

// Actions are the per-message edit/delete affordances. The UI only attaches
// them to self-authored messages; the store's own access rules enforce the
// same ownership independently.
type Actions struct {
	store   store.Store
	surface prompt.Surface
	log     zerolog.Logger
}

func NewActions(st store.Store, surface prompt.Surface, log zerolog.Logger) *Actions {
	return &Actions{store: st, surface: surface, log: log}
}

// Edit prompts for replacement text. Empty or unchanged text is a no-op;
// otherwise the message text is replaced, the edited flag set, and the edit
// time stamped by the server.
func (a *Actions) Edit(ctx context.Context, id, oldText string) error {
	text, ok := a.surface.Input("Edit Your Message", "", oldText)
	if !ok {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" || text == oldText {
		return nil
	}

	err := a.store.Update(ctx, store.Chats, id, store.Fields{
		"text":     text,
		"edited":   true,
		"editedAt": store.ServerTimestamp,
	})
	if err != nil {
		a.log.Error().Err(err).Str("message", id).Msg("edit failed")
		a.surface.Error("Edit Failed", err.Error())
		return fmt.Errorf("%w: %v", auth.ErrEditFailed, err)
	}
	return nil
}

// Delete removes the message permanently after confirmation.
func (a *Actions) Delete(ctx context.Context, id string) error {
	if !a.surface.Confirm("Delete Message?", "This cannot be undone.") {
		return nil
	}

	if err := a.store.Delete(ctx, store.Chats, id); err != nil {
		a.log.Error().Err(err).Str("message", id).Msg("delete failed")
		a.surface.Error("Delete Failed", err.Error())
		return fmt.Errorf("%w: %v", auth.ErrDeleteFailed, err)
	}
	return nil
}
