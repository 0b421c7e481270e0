// Package gateway is the websocket adapter for the managed backend: a single
// connection carries the auth operations and the document store traffic as
// typed JSON envelopes. Client implements both auth.Provider and store.Store.
package gateway

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
	log  zerolog.Logger

	mu       sync.Mutex
	seq      uint64
	pending  map[uint64]chan resultFrame
	watchers map[uint64]func(identity *auth.Identity)
	subs     map[uint64]*subscription
	closed   bool
	done     chan struct{}

	// sessionQ decouples session fanout from the read pump. A watcher may
	// issue its own request (the verification gate signs straight back out),
	// and that request's result frame can only arrive through the pump.
	sessionQ chan *auth.Identity
}

// Dial connects to the gateway and starts the read and write pumps.
func Dial(ctx context.Context, url string, log zerolog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		send:     make(chan []byte, 64),
		log:      log,
		pending:  make(map[uint64]chan resultFrame),
		watchers: make(map[uint64]func(*auth.Identity)),
		subs:     make(map[uint64]*subscription),
		done:     make(chan struct{}),
		sessionQ: make(chan *auth.Identity, 16),
	}
	go c.readPump()
	go c.writePump()
	go c.sessionPump()
	return c, nil
}

// Close tears the connection down. Outstanding calls fail; subscriptions
// stop delivering.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	pending := c.pending
	c.pending = make(map[uint64]chan resultFrame)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	c.conn.Close()
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug().Err(err).Msg("gateway read closed")
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn().Err(err).Msg("bad gateway frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug().Err(err).Msg("gateway write closed")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) dispatch(env envelope) {
	switch env.Type {
	case typeResult:
		var res resultFrame
		if err := json.Unmarshal(env.Payload, &res); err != nil {
			c.log.Warn().Err(err).Msg("bad result frame")
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[res.ID]
		delete(c.pending, res.ID)
		c.mu.Unlock()
		if ok {
			ch <- res
		}

	case typeSession:
		var push sessionPush
		if err := json.Unmarshal(env.Payload, &push); err != nil {
			c.log.Warn().Err(err).Msg("bad session frame")
			return
		}
		select {
		case c.sessionQ <- push.Identity:
		case <-c.done:
		}

	case typeSnapshot:
		var push snapshotPush
		if err := json.Unmarshal(env.Payload, &push); err != nil {
			c.log.Warn().Err(err).Msg("bad snapshot frame")
			return
		}
		c.mu.Lock()
		sub, ok := c.subs[push.Subscription]
		c.mu.Unlock()
		if !ok {
			return
		}
		sub.deliver(push.Docs)

	default:
		c.log.Warn().Str("type", env.Type).Msg("unknown gateway push")
	}
}

// sessionPump delivers session pushes to the watchers in arrival order,
// off the read pump so a watcher is free to call back into the client.
func (c *Client) sessionPump() {
	for {
		select {
		case id := <-c.sessionQ:
			c.mu.Lock()
			fns := make([]func(*auth.Identity), 0, len(c.watchers))
			for _, fn := range c.watchers {
				fns = append(fns, fn)
			}
			c.mu.Unlock()
			for _, fn := range fns {
				fn(id)
			}
		case <-c.done:
			return
		}
	}
}

// call sends one request and waits for the matching result frame.
func (c *Client) call(ctx context.Context, typ string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("gateway: connection closed")
	}
	c.seq++
	id := c.seq
	ch := make(chan resultFrame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	frame, err := json.Marshal(envelope{Type: typ, ID: id, Payload: body})
	if err != nil {
		c.drop(id)
		return nil, err
	}

	select {
	case c.send <- frame:
	case <-c.done:
		return nil, fmt.Errorf("gateway: connection closed")
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("gateway: connection closed")
		}
		if !res.OK {
			return nil, wireErr(res.Error)
		}
		return res.Data, nil
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	}
}

func (c *Client) drop(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// wireErr maps a gateway error onto the client taxonomy, keeping the
// backend's message text visible.
func wireErr(we *wireError) error {
	if we == nil {
		return fmt.Errorf("gateway: request failed")
	}
	if sentinel, ok := taxonomy[we.Code]; ok {
		return fmt.Errorf("%w: %s", sentinel, we.Message)
	}
	return fmt.Errorf("gateway: %s: %s", we.Code, we.Message)
}
