package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/presence"
	"github.com/emberworks/emberchat/internal/prompt"
	"github.com/emberworks/emberchat/internal/store"
)

// TypingIdle is how long after the last keystroke the typing flag drops.
const TypingIdle = 2500 * time.Millisecond

// Composer owns outgoing message text: the submit-to-store handoff and the
// debounced typing-state emission.
type Composer struct {
	store    store.Store
	tracker  *presence.Tracker
	reporter prompt.Reporter
	author   auth.Identity
	idle     time.Duration
	log      zerolog.Logger

	// restore puts the text back into the input when a send fails.
	restore func(text string)

	mu    sync.Mutex
	timer *time.Timer
}

func NewComposer(st store.Store, tracker *presence.Tracker, reporter prompt.Reporter, author *auth.Identity, restore func(string), log zerolog.Logger) *Composer {
	return &Composer{
		store:    st,
		tracker:  tracker,
		reporter: reporter,
		author:   *author,
		idle:     TypingIdle,
		restore:  restore,
		log:      log,
	}
}

// SetIdle overrides the debounce interval. Test hook.
func (c *Composer) SetIdle(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idle = d
}

// OnInput marks the author typing and restarts the idle timer. Called on
// every input change; the timer fires once, after idle with no further
// input, and drops the flag again. The timer is armed only after the
// typing=true write returns: arming first would let a slow write be
// overtaken by the idle write, leaving the flag stuck on.
func (c *Composer) OnInput(ctx context.Context) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if err := c.tracker.SetTyping(ctx, true); err != nil {
		c.log.Warn().Err(err).Msg("typing write failed")
	}

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.idle, func() {
		if err := c.tracker.SetTyping(context.Background(), false); err != nil {
			c.log.Warn().Err(err).Msg("typing idle write failed")
		}
	})
	c.mu.Unlock()
}

// Submit appends the message. Whitespace-only text is a no-op. The caller
// has already cleared the input optimistically; on failure the previous text
// is restored and the failure reported, with no retry. A successful send
// forces typing false immediately.
func (c *Composer) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	_, err := c.store.Insert(ctx, store.Chats, store.Fields{
		"text":       text,
		"authorId":   c.author.ID,
		"authorName": c.author.Label(),
		"edited":     false,
		"createdAt":  store.ServerTimestamp,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("send failed")
		if c.restore != nil {
			c.restore(text)
		}
		c.reporter.Error("Message Not Sent", err.Error())
		return fmt.Errorf("%w: %v", auth.ErrSendFailed, err)
	}

	c.stopTyping(ctx)
	return nil
}

// StopTyping cancels any pending idle timer and drops the flag.
func (c *Composer) StopTyping(ctx context.Context) { c.stopTyping(ctx) }

// Cancel stops the idle timer without touching the store. Used on teardown,
// after the session is gone and presence writes would be rejected anyway.
func (c *Composer) Cancel() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}

func (c *Composer) stopTyping(ctx context.Context) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if err := c.tracker.SetTyping(ctx, false); err != nil {
		c.log.Warn().Err(err).Msg("typing clear failed")
	}
}
