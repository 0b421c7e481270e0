package chat

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/store"
)

// Window is the maximum number of messages kept visible.
const Window = 100

// RenderMessages receives the full visible message list, oldest first, on
// every push. Rendering must be idempotent: the previous view is replaced
// wholesale, never patched.
type RenderMessages func([]Message)

// MessageChannel is the sole read path for messages: a live query over the
// most recent Window entries, re-rendered from each pushed snapshot.
type MessageChannel struct {
	store  store.Store
	render RenderMessages
	limit  int
	log    zerolog.Logger

	mu  sync.Mutex
	sub store.Subscription
}

func NewMessageChannel(st store.Store, render RenderMessages, log zerolog.Logger) *MessageChannel {
	return &MessageChannel{store: st, render: render, limit: Window, log: log}
}

// SetWindow overrides the visible window size. Must be called before
// Subscribe.
func (c *MessageChannel) SetWindow(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.limit = n
	}
}

// Subscribe opens the live query. The store orders newest-first and caps the
// window; the channel flips each snapshot back to ascending before rendering,
// so the view always shows the most recent messages oldest-first.
func (c *MessageChannel) Subscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil
	}

	q := store.Query{
		OrderBy: &store.Order{Field: "createdAt", Desc: true},
		Limit:   c.limit,
	}
	sub, err := c.store.LiveQuery(store.Chats, q, func(snap store.Snapshot) {
		msgs := make([]Message, 0, len(snap))
		for _, d := range snap {
			msgs = append(msgs, MessageFromDoc(d))
		}
		sort.SliceStable(msgs, func(i, j int) bool {
			a, b := msgs[i].CreatedAt, msgs[j].CreatedAt
			if a.Seconds != b.Seconds {
				return a.Seconds < b.Seconds
			}
			return a.Nanos < b.Nanos
		})
		c.render(msgs)
	})
	if err != nil {
		return err
	}
	c.sub = sub
	c.log.Debug().Msg("message channel subscribed")
	return nil
}

// Unsubscribe releases the live query. Must run on logout so no stale push
// renders into a torn-down view; safe to call more than once.
func (c *MessageChannel) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return
	}
	c.sub.Close()
	c.sub = nil
	c.log.Debug().Msg("message channel released")
}
