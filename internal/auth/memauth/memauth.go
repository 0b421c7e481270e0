// Package memauth is an in-memory auth.Provider used by the test suite and
// the --local demo mode. It mimics the managed provider's observable
// behavior: duplicate and credential rejections, email verification gating,
// a fixed OTP code, and synchronous session change callbacks.
package memauth

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/emberworks/emberchat/internal/auth"
)

// Code is the OTP every challenge accepts.
const Code = "123456"

type account struct {
	password string
	identity auth.Identity
}

type Provider struct {
	mu       sync.Mutex
	accounts map[string]*account // keyed by email or E.164 number
	current  *auth.Identity
	lastMade *account
	watchers map[int]func(*auth.Identity)
	nextID   int

	// FailPhoneDispatch makes BeginPhoneAuth fail, exercising the OTP
	// channel error path.
	FailPhoneDispatch bool
}

func New() *Provider {
	return &Provider{
		accounts: make(map[string]*account),
		watchers: make(map[int]func(*auth.Identity)),
	}
}

func (p *Provider) CreateAccount(ctx context.Context, contact, password string) (*auth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[contact]; ok {
		return nil, fmt.Errorf("%w: %s", auth.ErrDuplicateAccount, contact)
	}
	acct := &account{
		password: password,
		identity: auth.Identity{ID: uuid.NewString(), Email: contact},
	}
	// Account creation never grants a chat session; email accounts verify
	// first and sign in afterwards.
	p.accounts[contact] = acct
	p.lastMade = acct
	id := acct.identity
	return &id, nil
}

func (p *Provider) Authenticate(ctx context.Context, contact, password string) (*auth.Identity, error) {
	p.mu.Lock()
	acct, ok := p.accounts[contact]
	if !ok || acct.password != password {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, contact)
	}
	id := acct.identity
	p.mu.Unlock()
	p.setSession(&id)
	return &id, nil
}

func (p *Provider) SetDisplayName(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	// The name applies to the most recently touched account: with one active
	// flow at a time that is the account just created or authenticated.
	if p.current != nil {
		if acct, ok := p.lookupLocked(p.current.ID); ok {
			acct.identity.DisplayName = name
			cur := acct.identity
			p.current = &cur
			return nil
		}
	}
	// No session (email sign-up path): the name belongs to the account that
	// was just created, never to any other.
	if p.lastMade != nil {
		p.lastMade.identity.DisplayName = name
	}
	return nil
}

func (p *Provider) SendVerificationEmail(ctx context.Context) error { return nil }

func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; !ok {
		return fmt.Errorf("%w: unknown address %s", auth.ErrResetDispatch, email)
	}
	return nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.setSession(nil)
	return nil
}

func (p *Provider) OnSessionChange(fn func(*auth.Identity)) (cancel func()) {
	p.mu.Lock()
	p.nextID++
	key := p.nextID
	p.watchers[key] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.watchers, key)
		p.mu.Unlock()
	}
}

type challenge struct{ anchor string }

func (c challenge) Anchor() string { return c.anchor }

func (p *Provider) RegisterChallenge(ctx context.Context, anchor string) (auth.HumanChallenge, error) {
	return challenge{anchor: anchor}, nil
}

type confirmation struct {
	p      *Provider
	number string
}

func (c *confirmation) Confirm(ctx context.Context, code string) (*auth.Identity, error) {
	if code != Code {
		return nil, fmt.Errorf("%w: %s", auth.ErrOTPInvalid, code)
	}
	c.p.mu.Lock()
	acct, ok := c.p.accounts[c.number]
	if !ok {
		acct = &account{identity: auth.Identity{ID: uuid.NewString(), PhoneNumber: c.number}}
		c.p.accounts[c.number] = acct
		c.p.lastMade = acct
	}
	id := acct.identity
	c.p.mu.Unlock()
	c.p.setSession(&id)
	return &id, nil
}

func (p *Provider) BeginPhoneAuth(ctx context.Context, number string, ch auth.HumanChallenge) (auth.PendingConfirmation, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: no human challenge registered", auth.ErrOTPChannel)
	}
	p.mu.Lock()
	fail := p.FailPhoneDispatch
	p.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: sms quota exceeded", auth.ErrOTPChannel)
	}
	return &confirmation{p: p, number: number}, nil
}

// MarkVerified flips the verified flag for an email account, standing in for
// the user clicking the verification link.
func (p *Provider) MarkVerified(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acct, ok := p.accounts[email]; ok {
		acct.identity.EmailVerified = true
	}
}

// Session returns the current identity, nil when signed out. Test hook.
func (p *Provider) Session() *auth.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	id := *p.current
	return &id
}

func (p *Provider) lookupLocked(id string) (*account, bool) {
	for _, acct := range p.accounts {
		if acct.identity.ID == id {
			return acct, true
		}
	}
	return nil, false
}

// setSession swaps the session and fires the watchers synchronously. The
// lock is dropped before the callbacks run so a watcher may sign out again
// (the unverified-identity rule does exactly that).
func (p *Provider) setSession(id *auth.Identity) {
	p.mu.Lock()
	p.current = id
	fns := make([]func(*auth.Identity), 0, len(p.watchers))
	for _, fn := range p.watchers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}
