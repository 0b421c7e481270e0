package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/emberchat/internal/store"
	"github.com/emberworks/emberchat/internal/store/memstore"
)

// tick returns a clock advancing one second per call.
func tick() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestInsertResolvesServerTimestamp(t *testing.T) {
	s := memstore.New()
	s.SetClock(tick())

	id, err := s.Insert(context.Background(), store.Chats, store.Fields{
		"text":      "hello",
		"createdAt": store.ServerTimestamp,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var snap store.Snapshot
	sub, err := s.LiveQuery(store.Chats, store.Query{}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, snap, 1)
	ts := snap[0].Fields.Timestamp("createdAt")
	assert.False(t, ts.IsZero())
	assert.Equal(t, "hello", snap[0].Fields.String("text"))
}

func TestUpdateMissingDocFails(t *testing.T) {
	s := memstore.New()
	err := s.Update(context.Background(), store.Users, "nope", store.Fields{"status": "online"})
	assert.Error(t, err)
}

func TestUpsertMergeCreatesThenMerges(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Fields{
		"displayName": "ayesha",
		"status":      "offline",
	}))
	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Fields{
		"status": "online",
	}))

	var snap store.Snapshot
	sub, err := s.LiveQuery(store.Users, store.Query{}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, snap, 1, "upsert must never duplicate a record")
	assert.Equal(t, "ayesha", snap[0].Fields.String("displayName"))
	assert.Equal(t, "online", snap[0].Fields.String("status"))
}

func TestLiveQueryOrderingAndLimit(t *testing.T) {
	s := memstore.New()
	s.SetClock(tick())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, store.Chats, store.Fields{
			"n":         i,
			"createdAt": store.ServerTimestamp,
		})
		require.NoError(t, err)
	}

	var snap store.Snapshot
	sub, err := s.LiveQuery(store.Chats, store.Query{
		OrderBy: &store.Order{Field: "createdAt", Desc: true},
		Limit:   3,
	}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, snap, 3)
	// Newest first: 4, 3, 2.
	assert.Equal(t, 4, snap[0].Fields["n"])
	assert.Equal(t, 3, snap[1].Fields["n"])
	assert.Equal(t, 2, snap[2].Fields["n"])
}

func TestLiveQueryWhereFilter(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Fields{"typing": true}))
	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u2", store.Fields{"typing": false}))

	var snap store.Snapshot
	sub, err := s.LiveQuery(store.Users, store.Query{
		Where: &store.Where{Field: "typing", Op: store.OpEqual, Value: true},
	}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, snap, 1)
	assert.Equal(t, "u1", snap[0].ID)

	// Flipping the flag pushes an updated snapshot.
	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Fields{"typing": false}))
	assert.Empty(t, snap)
}

func TestDeleteRemovesFromSnapshots(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	id, err := s.Insert(ctx, store.Chats, store.Fields{"text": "bye"})
	require.NoError(t, err)

	var snap store.Snapshot
	sub, err := s.LiveQuery(store.Chats, store.Query{}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	defer sub.Close()
	require.Len(t, snap, 1)

	require.NoError(t, s.Delete(ctx, store.Chats, id))
	assert.Empty(t, snap, "a deleted id must never appear in a later snapshot")
}

func TestClosedSubscriptionStopsPushing(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	pushes := 0
	sub, err := s.LiveQuery(store.Chats, store.Query{}, func(store.Snapshot) { pushes++ })
	require.NoError(t, err)
	require.Equal(t, 1, pushes, "initial snapshot")

	sub.Close()
	sub.Close() // idempotent

	_, err = s.Insert(ctx, store.Chats, store.Fields{"text": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, pushes)
}
