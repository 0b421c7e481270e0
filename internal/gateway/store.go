package gateway

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/emberworks/emberchat/internal/store"
)

// store.Store implementation. Live queries are registered locally before the
// subscribe request goes out, so the first pushed snapshot always finds its
// subscription.

func (c *Client) Insert(ctx context.Context, collection string, fields store.Fields) (string, error) {
	data, err := c.call(ctx, typeInsert, docPayload{Collection: collection, Fields: encodeFields(fields)})
	if err != nil {
		return "", err
	}
	var res insertResult
	if err := json.Unmarshal(data, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, fields store.Fields) error {
	_, err := c.call(ctx, typeUpdate, docPayload{Collection: collection, ID: id, Fields: encodeFields(fields)})
	return err
}

func (c *Client) UpsertMerge(ctx context.Context, collection, id string, fields store.Fields) error {
	_, err := c.call(ctx, typeMerge, docPayload{Collection: collection, ID: id, Fields: encodeFields(fields)})
	return err
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.call(ctx, typeDelete, docPayload{Collection: collection, ID: id})
	return err
}

type subscription struct {
	c    *Client
	id   uint64
	push store.PushFunc

	mu     sync.Mutex
	closed bool
}

func (sub *subscription) deliver(docs []wireDoc) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.mu.Unlock()

	snap := make(store.Snapshot, 0, len(docs))
	for _, d := range docs {
		snap = append(snap, store.Doc{ID: d.ID, Fields: d.Fields})
	}
	sub.push(snap)
}

// Close releases the live query. The local registration is removed first so
// a push racing the unsubscribe request cannot render after Close returns.
func (sub *subscription) Close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()

	sub.c.mu.Lock()
	delete(sub.c.subs, sub.id)
	closed := sub.c.closed
	sub.c.mu.Unlock()
	if closed {
		return
	}

	go func() {
		if _, err := sub.c.call(context.Background(), typeUnsubscribe, unsubscribePayload{Subscription: sub.id}); err != nil {
			sub.c.log.Debug().Err(err).Uint64("sub", sub.id).Msg("unsubscribe failed")
		}
	}()
}

func (c *Client) LiveQuery(collection string, q store.Query, push store.PushFunc) (store.Subscription, error) {
	c.mu.Lock()
	c.seq++
	sub := &subscription{c: c, id: c.seq, push: push}
	c.subs[sub.id] = sub
	c.mu.Unlock()

	payload := subscribePayload{
		Subscription: sub.id,
		Collection:   collection,
		Limit:        q.Limit,
	}
	if q.Where != nil {
		payload.Where = &wireWhere{Field: q.Where.Field, Op: string(q.Where.Op), Value: q.Where.Value}
	}
	if q.OrderBy != nil {
		payload.OrderBy = &wireOrder{Field: q.OrderBy.Field, Desc: q.OrderBy.Desc}
	}

	if _, err := c.call(context.Background(), typeSubscribe, payload); err != nil {
		c.mu.Lock()
		delete(c.subs, sub.id)
		c.mu.Unlock()
		return nil, err
	}
	return sub, nil
}
