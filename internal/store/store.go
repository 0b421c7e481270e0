// Package store defines the document store contract: collections of schemaless
// documents with server-assigned ids and timestamps, plus push-based live
// queries that re-deliver the full matching result set on every change.
package store

import (
	"context"
	"time"
)

// Collection names used by the client. Messages live in Chats; presence
// records live in Users, keyed by identity id.
const (
	Chats = "chats"
	Users = "users"
)

// Fields is the schemaless field set of a document.
type Fields map[string]any

// Doc is one stored document.
type Doc struct {
	ID     string
	Fields Fields
}

// Snapshot is the full result set of a live query at one point in time.
type Snapshot []Doc

// Timestamp is a store-assigned wall clock value. The zero value means the
// server has not assigned it yet.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

func (t Timestamp) IsZero() bool { return t.Seconds == 0 && t.Nanos == 0 }

// Time converts to local time from the seconds component.
func (t Timestamp) Time() time.Time { return time.Unix(t.Seconds, int64(t.Nanos)) }

// TimestampOf builds a Timestamp from a wall clock value.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

type serverTimestamp struct{}

// ServerTimestamp is a write-time sentinel: the store replaces it with its own
// clock when the write commits.
var ServerTimestamp = serverTimestamp{}

// Op is a filter comparison operator.
type Op string

const OpEqual Op = "=="

// Where filters a query to documents whose field compares true.
type Where struct {
	Field string
	Op    Op
	Value any
}

// Order sorts a query by one field.
type Order struct {
	Field string
	Desc  bool
}

// Query shapes a live query: optional filter, optional ordering, and an
// optional limit applied after ordering (0 means no limit).
type Query struct {
	Where   *Where
	OrderBy *Order
	Limit   int
}

// PushFunc receives the full matching snapshot on the initial subscribe and
// again on every subsequent change, in arrival order.
type PushFunc func(Snapshot)

// Subscription is a live query handle. Close releases it and is idempotent;
// no push is delivered after Close returns.
type Subscription interface {
	Close()
}

// Store is the remote document store.
type Store interface {
	Insert(ctx context.Context, collection string, fields Fields) (string, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	UpsertMerge(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	LiveQuery(collection string, q Query, push PushFunc) (Subscription, error)
}

// String reads a string field, tolerating absent or mistyped values.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool reads a bool field.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Timestamp reads a timestamp field. Values decoded from the wire arrive as
// generic maps; both forms are accepted.
func (f Fields) Timestamp(key string) Timestamp {
	switch v := f[key].(type) {
	case Timestamp:
		return v
	case map[string]any:
		var ts Timestamp
		if s, ok := v["seconds"].(float64); ok {
			ts.Seconds = int64(s)
		}
		if n, ok := v["nanos"].(float64); ok {
			ts.Nanos = int32(n)
		}
		return ts
	default:
		return Timestamp{}
	}
}
