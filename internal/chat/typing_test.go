package chat_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/emberchat/internal/chat"
	"github.com/emberworks/emberchat/internal/store"
	"github.com/emberworks/emberchat/internal/store/memstore"
)

func setTyping(t *testing.T, s *memstore.Store, id, name string, typing bool) {
	t.Helper()
	err := s.UpsertMerge(context.Background(), store.Users, id, store.Fields{
		"displayName": name,
		"typing":      typing,
	})
	require.NoError(t, err)
}

func TestTypingExcludesSelf(t *testing.T) {
	s := memstore.New()
	setTyping(t, s, "me", "me@x.com", true)
	setTyping(t, s, "u2", "bilal@x.com", true)
	setTyping(t, s, "u3", "carol@x.com", false)

	var names []string
	ch := chat.NewTypingChannel(s, "me", func(n []string) { names = n }, zerolog.Nop())
	require.NoError(t, ch.Subscribe())
	defer ch.Unsubscribe()

	assert.Equal(t, []string{"bilal"}, names)

	setTyping(t, s, "u3", "carol@x.com", true)
	assert.Equal(t, []string{"bilal", "carol"}, names)

	setTyping(t, s, "u2", "bilal@x.com", false)
	setTyping(t, s, "u3", "carol@x.com", false)
	assert.Empty(t, names)
}

func TestIndicator(t *testing.T) {
	assert.Equal(t, "", chat.Indicator(nil))
	assert.Equal(t, "bilal is typing…", chat.Indicator([]string{"bilal"}))
	assert.Equal(t, "bilal, carol are typing…", chat.Indicator([]string{"bilal", "carol"}))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "ayesha", chat.ShortName("ayesha@x.com"))
	assert.Equal(t, "Ayesha", chat.ShortName("Ayesha"))
	assert.Equal(t, "User", chat.ShortName(""))
}
