package gateway

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/emberworks/emberchat/internal/auth"
)

// auth.Provider implementation. Session changes arrive as gateway pushes and
// fan out to OnSessionChange watchers.

func (c *Client) CreateAccount(ctx context.Context, contact, password string) (*auth.Identity, error) {
	data, err := c.call(ctx, typeCreateAccount, credentialsPayload{Contact: contact, Password: password})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(data)
}

func (c *Client) Authenticate(ctx context.Context, contact, password string) (*auth.Identity, error) {
	data, err := c.call(ctx, typeAuthenticate, credentialsPayload{Contact: contact, Password: password})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(data)
}

func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	_, err := c.call(ctx, typeDisplayName, displayNamePayload{Name: name})
	return err
}

func (c *Client) SendVerificationEmail(ctx context.Context) error {
	_, err := c.call(ctx, typeVerifyEmail, struct{}{})
	return err
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	_, err := c.call(ctx, typeResetEmail, resetPayload{Email: email})
	return err
}

func (c *Client) SignOut(ctx context.Context) error {
	_, err := c.call(ctx, typeSignOut, struct{}{})
	return err
}

func (c *Client) OnSessionChange(fn func(*auth.Identity)) (cancel func()) {
	c.mu.Lock()
	c.seq++
	key := c.seq
	c.watchers[key] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, key)
		c.mu.Unlock()
	}
}

type challenge struct {
	anchor string
	token  string
}

func (ch challenge) Anchor() string { return ch.anchor }

func (c *Client) RegisterChallenge(ctx context.Context, anchor string) (auth.HumanChallenge, error) {
	data, err := c.call(ctx, typeChallenge, challengePayload{Anchor: anchor})
	if err != nil {
		return nil, err
	}
	var res challengeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return challenge{anchor: anchor, token: res.Challenge}, nil
}

type confirmation struct {
	c      *Client
	handle string
}

func (cf *confirmation) Confirm(ctx context.Context, code string) (*auth.Identity, error) {
	data, err := cf.c.call(ctx, typePhoneConfirm, phoneConfirmPayload{Confirmation: cf.handle, Code: code})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(data)
}

func (c *Client) BeginPhoneAuth(ctx context.Context, number string, ch auth.HumanChallenge) (auth.PendingConfirmation, error) {
	gc, ok := ch.(challenge)
	if !ok {
		return nil, auth.ErrOTPChannel
	}
	data, err := c.call(ctx, typePhoneBegin, phoneBeginPayload{Number: number, Challenge: gc.token})
	if err != nil {
		return nil, err
	}
	var res phoneBeginResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &confirmation{c: c, handle: res.Confirmation}, nil
}

func decodeIdentity(data json.RawMessage) (*auth.Identity, error) {
	var id auth.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	return &id, nil
}
