package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/chat"
	"github.com/emberworks/emberchat/internal/presence"
	"github.com/emberworks/emberchat/internal/prompt/prompttest"
	"github.com/emberworks/emberchat/internal/store"
	"github.com/emberworks/emberchat/internal/store/memstore"
)

// failingStore rejects inserts, exercising the send failure path.
type failingStore struct {
	*memstore.Store
}

func (f *failingStore) Insert(ctx context.Context, collection string, fields store.Fields) (string, error) {
	return "", errors.New("gateway unavailable")
}

func newComposer(t *testing.T, st store.Store, restore func(string)) (*chat.Composer, *memstore.Store, *prompttest.Script) {
	t.Helper()
	mem, ok := st.(*memstore.Store)
	if !ok {
		mem = st.(*failingStore).Store
	}
	identity := &auth.Identity{ID: "me", DisplayName: "Ayesha", Email: "ayesha@x.com"}
	tracker := presence.NewTracker(mem, identity, zerolog.Nop())
	script := &prompttest.Script{}
	c := chat.NewComposer(st, tracker, script, identity, restore, zerolog.Nop())
	return c, mem, script
}

func typingFlag(t *testing.T, s *memstore.Store, id string) bool {
	t.Helper()
	var snap store.Snapshot
	sub, err := s.LiveQuery(store.Users, store.Query{}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	sub.Close()
	for _, d := range snap {
		if d.ID == id {
			return presence.RecordFromDoc(d).Typing
		}
	}
	return false
}

func chatCount(t *testing.T, s *memstore.Store) int {
	t.Helper()
	n := 0
	sub, err := s.LiveQuery(store.Chats, store.Query{}, func(sn store.Snapshot) { n = len(sn) })
	require.NoError(t, err)
	sub.Close()
	return n
}

func TestSubmitWhitespaceIsNoop(t *testing.T) {
	c, mem, script := newComposer(t, memstore.New(), nil)

	require.NoError(t, c.Submit(context.Background(), "   \n\t"))
	assert.Equal(t, 0, chatCount(t, mem))
	assert.Empty(t, script.Notices)
}

func TestSubmitStopsTyping(t *testing.T) {
	c, mem, _ := newComposer(t, memstore.New(), nil)
	ctx := context.Background()

	c.OnInput(ctx)
	require.True(t, typingFlag(t, mem, "me"))

	require.NoError(t, c.Submit(ctx, "hello"))
	assert.Equal(t, 1, chatCount(t, mem))
	assert.False(t, typingFlag(t, mem, "me"), "a send always clears the flag")
}

func TestTypingDropsAfterIdle(t *testing.T) {
	c, mem, _ := newComposer(t, memstore.New(), nil)
	ctx := context.Background()

	c.SetIdle(20 * time.Millisecond)
	c.OnInput(ctx)
	require.True(t, typingFlag(t, mem, "me"))

	require.Eventually(t, func() bool {
		return !typingFlag(t, mem, "me")
	}, time.Second, 5*time.Millisecond)
}

func TestInputRestartsIdleTimer(t *testing.T) {
	c, mem, _ := newComposer(t, memstore.New(), nil)
	ctx := context.Background()

	c.SetIdle(60 * time.Millisecond)
	c.OnInput(ctx)
	time.Sleep(40 * time.Millisecond)
	c.OnInput(ctx)
	time.Sleep(40 * time.Millisecond)
	// 80ms since the first keystroke, 40ms since the last: still typing.
	assert.True(t, typingFlag(t, mem, "me"))

	require.Eventually(t, func() bool {
		return !typingFlag(t, mem, "me")
	}, time.Second, 5*time.Millisecond)
}

func TestSubmitFailureRestoresText(t *testing.T) {
	var restored string
	fs := &failingStore{Store: memstore.New()}
	c, _, script := newComposer(t, fs, func(text string) { restored = text })

	err := c.Submit(context.Background(), "important words")
	assert.ErrorIs(t, err, auth.ErrSendFailed)
	assert.Equal(t, "important words", restored)

	require.NotEmpty(t, script.Errors())
	assert.Equal(t, "Message Not Sent", script.Errors()[0].Title)
}

// stallingStore blocks one Update call until released, standing in for a
// slow remote write.
type stallingStore struct {
	*memstore.Store
	mu   sync.Mutex
	gate chan struct{}
}

func (s *stallingStore) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	s.mu.Lock()
	gate := s.gate
	s.gate = nil
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return s.Store.Update(ctx, collection, id, fields)
}

func TestIdleTimerWaitsForTypingWrite(t *testing.T) {
	mem := memstore.New()
	require.NoError(t, mem.UpsertMerge(context.Background(), store.Users, "me", store.Fields{
		"displayName": "Ayesha",
		"typing":      false,
	}))

	gate := make(chan struct{})
	slow := &stallingStore{Store: mem, gate: gate}
	identity := &auth.Identity{ID: "me", DisplayName: "Ayesha"}
	tracker := presence.NewTracker(slow, identity, zerolog.Nop())
	c := chat.NewComposer(slow, tracker, &prompttest.Script{}, identity, nil, zerolog.Nop())
	c.SetIdle(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.OnInput(context.Background())
		close(done)
	}()

	// Long enough that a prematurely armed timer would already have fired
	// and written typing=false, only to be overtaken by the stalled write.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	<-done

	require.Eventually(t, func() bool {
		return !typingFlag(t, mem, "me")
	}, time.Second, 5*time.Millisecond, "the idle write must land after the typing write")
}

func TestCancelStopsTimerWithoutWrite(t *testing.T) {
	c, mem, _ := newComposer(t, memstore.New(), nil)
	ctx := context.Background()

	c.SetIdle(20 * time.Millisecond)
	c.OnInput(ctx)
	require.True(t, typingFlag(t, mem, "me"))

	c.Cancel()
	time.Sleep(60 * time.Millisecond)
	// The timer was stopped before firing, so the flag stays as it was.
	assert.True(t, typingFlag(t, mem, "me"))
}
