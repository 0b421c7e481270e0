package chat

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/presence"
	"github.com/emberworks/emberchat/internal/store"
)

// RenderTyping receives the display names of everyone currently typing,
// excluding the current identity; empty means clear the indicator.
type RenderTyping func(names []string)

// TypingChannel watches the presence records flagged typing and renders the
// aggregate indicator. The current identity is filtered out on every push,
// since its own record enters and leaves the raw result set as it types.
type TypingChannel struct {
	store  store.Store
	selfID string
	render RenderTyping
	log    zerolog.Logger

	mu  sync.Mutex
	sub store.Subscription
}

func NewTypingChannel(st store.Store, selfID string, render RenderTyping, log zerolog.Logger) *TypingChannel {
	return &TypingChannel{store: st, selfID: selfID, render: render, log: log}
}

func (c *TypingChannel) Subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil
	}

	q := store.Query{
		Where: &store.Where{Field: "typing", Op: store.OpEqual, Value: true},
	}
	sub, err := c.store.LiveQuery(store.Users, q, func(snap store.Snapshot) {
		var names []string
		for _, d := range snap {
			if d.ID == c.selfID {
				continue
			}
			rec := presence.RecordFromDoc(d)
			names = append(names, ShortName(rec.DisplayName))
		}
		sort.Strings(names)
		c.render(names)
	})
	if err != nil {
		return err
	}
	c.sub = sub
	c.log.Debug().Msg("typing channel subscribed")
	return nil
}

func (c *TypingChannel) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return
	}
	c.sub.Close()
	c.sub = nil
	c.log.Debug().Msg("typing channel released")
}

// Indicator formats the aggregate line: "A is typing…", "A, B are typing…",
// "" when nobody is.
func Indicator(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing…"
	default:
		line := names[0]
		for _, n := range names[1:] {
			line += ", " + n
		}
		return line + " are typing…"
	}
}
