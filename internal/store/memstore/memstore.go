// Package memstore is an in-memory document store with live query fanout. It
// backs the test suite and the --local demo mode; the semantics mirror the
// remote store: server-assigned ids and timestamps, upsert-merge writes, and
// full-snapshot pushes on every change.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emberworks/emberchat/internal/store"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]store.Fields
	subs        map[int]*subscription
	nextSub     int

	// now is swappable so tests control assigned timestamps.
	now func() time.Time
}

type subscription struct {
	s          *Store
	id         int
	collection string
	query      store.Query
	push       store.PushFunc
	closed     bool
}

func (sub *subscription) Close() {
	sub.s.mu.Lock()
	defer sub.s.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(sub.s.subs, sub.id)
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]store.Fields),
		subs:        make(map[int]*subscription),
		now:         time.Now,
	}
}

// SetClock replaces the timestamp source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Insert(ctx context.Context, collection string, fields store.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.docs(collection)[id] = s.resolve(fields)
	s.fanout(collection)
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs(collection)[id]
	if !ok {
		return fmt.Errorf("memstore: %s/%s: no such document", collection, id)
	}
	for k, v := range s.resolve(fields) {
		doc[k] = v
	}
	s.fanout(collection)
	return nil
}

func (s *Store) UpsertMerge(ctx context.Context, collection, id string, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs(collection)[id]
	if !ok {
		doc = make(store.Fields)
		s.docs(collection)[id] = doc
	}
	for k, v := range s.resolve(fields) {
		doc[k] = v
	}
	s.fanout(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs(collection), id)
	s.fanout(collection)
	return nil
}

// LiveQuery registers the subscription and delivers the initial snapshot
// before returning. Pushes run synchronously with the mutating write, so each
// subscriber observes snapshots in write order.
func (s *Store) LiveQuery(collection string, q store.Query, push store.PushFunc) (store.Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	sub := &subscription{s: s, id: s.nextSub, collection: collection, query: q, push: push}
	s.subs[sub.id] = sub
	snap := s.snapshot(collection, q)
	s.mu.Unlock()

	push(snap)
	return sub, nil
}

// docs returns the live map for a collection, creating it lazily. Callers
// hold s.mu.
func (s *Store) docs(collection string) map[string]store.Fields {
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string]store.Fields)
		s.collections[collection] = c
	}
	return c
}

// resolve copies the fields, replacing the ServerTimestamp sentinel with the
// store clock. Callers hold s.mu.
func (s *Store) resolve(fields store.Fields) store.Fields {
	out := make(store.Fields, len(fields))
	ts := store.TimestampOf(s.now())
	for k, v := range fields {
		if v == store.ServerTimestamp {
			out[k] = ts
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Store) fanout(collection string) {
	for _, sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		sub.push(s.snapshot(collection, sub.query))
	}
}

func (s *Store) snapshot(collection string, q store.Query) store.Snapshot {
	var snap store.Snapshot
	for id, fields := range s.collections[collection] {
		if q.Where != nil && !matches(fields, *q.Where) {
			continue
		}
		copied := make(store.Fields, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		snap = append(snap, store.Doc{ID: id, Fields: copied})
	}
	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Desc
		sort.SliceStable(snap, func(i, j int) bool {
			c := compare(snap[i].Fields[field], snap[j].Fields[field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(snap) > q.Limit {
		snap = snap[:q.Limit]
	}
	return snap
}

func matches(fields store.Fields, w store.Where) bool {
	switch w.Op {
	case store.OpEqual:
		return compare(fields[w.Field], w.Value) == 0
	default:
		return false
	}
}

func compare(a, b any) int {
	switch av := a.(type) {
	case store.Timestamp:
		bv, ok := b.(store.Timestamp)
		if !ok {
			return -1
		}
		if av.Seconds != bv.Seconds {
			return int(av.Seconds - bv.Seconds)
		}
		return int(av.Nanos - bv.Nanos)
	case string:
		bv, ok := b.(string)
		if !ok {
			return -1
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return -1
		}
		if av == bv {
			return 0
		}
		if av {
			return 1
		}
		return -1
	case nil:
		if b == nil {
			return 0
		}
		return -1
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if !aok || !bok {
			return -1
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
