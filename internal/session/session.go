// Package session tracks the current authenticated identity: it observes the
// provider's session stream, enforces the email-verification gate, and owns
// the per-login teardown list so subscriptions never leak across identities.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/prompt"
)

// Store holds the current Identity-or-none and notifies subscribers
// synchronously on every session change. An unverified email identity is
// treated as no session: the store forces a sign-out, reports the
// verification requirement, and never exposes the identity downstream.
type Store struct {
	provider auth.Provider
	reporter prompt.Reporter
	log      zerolog.Logger

	mu        sync.Mutex
	current   *auth.Identity
	subs      []func(*auth.Identity)
	teardowns []func()
	cancel    func()
}

func New(provider auth.Provider, log zerolog.Logger) *Store {
	return &Store{provider: provider, log: log}
}

// SetReporter wires the alert surface. The surface is built after the store
// (it needs the store for its own wiring), so this is a late bind.
func (s *Store) SetReporter(r prompt.Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporter = r
}

// Watch begins observing the provider session stream.
func (s *Store) Watch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	s.cancel = s.provider.OnSessionChange(s.handle)
}

// Close stops observing. Any active login is torn down first.
func (s *Store) Close() {
	s.handle(nil)
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Current returns the active identity, nil when signed out.
func (s *Store) Current() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// Subscribe registers fn to run synchronously on every session transition,
// with the new identity (nil on logout).
func (s *Store) Subscribe(fn func(*auth.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// AddTeardown registers fn to run exactly once when the current login ends.
// Channel subscriptions register here so logout releases them before the
// auth view is revealed. If no login is active the cycle has already ended
// and fn runs immediately, so nothing can leak past a logout that raced the
// registration.
func (s *Store) AddTeardown(fn func()) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		fn()
		return
	}
	s.teardowns = append(s.teardowns, fn)
	s.mu.Unlock()
}

func (s *Store) handle(id *auth.Identity) {
	if id != nil && id.Email != "" && !id.EmailVerified {
		// Never expose an unverified identity. The forced sign-out fires
		// this handler again with nil, which is a no-op below.
		s.log.Info().Str("user", id.ID).Msg("unverified session rejected")
		if err := s.provider.SignOut(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("forced sign-out failed")
		}
		s.mu.Lock()
		reporter := s.reporter
		s.mu.Unlock()
		if reporter != nil {
			reporter.Error("Email Not Verified", "Check your inbox for the verification link.")
		}
		return
	}

	s.mu.Lock()
	if id == nil && s.current == nil {
		s.mu.Unlock()
		return
	}

	var teardowns []func()
	if s.current != nil {
		teardowns = s.teardowns
		s.teardowns = nil
	}
	s.current = id
	subs := make([]func(*auth.Identity), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	// Teardowns run before subscribers see the transition, so no stale push
	// can render into the view the subscribers are about to swap.
	for _, fn := range teardowns {
		fn()
	}
	for _, fn := range subs {
		fn(id)
	}
}
