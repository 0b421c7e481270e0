// Package flow orchestrates sign-up, sign-in, the phone OTP challenge and
// password reset against the auth provider, driving session store
// transitions as a side effect. Every failure is reported once to the user;
// nothing retries automatically.
package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/presence"
	"github.com/emberworks/emberchat/internal/prompt"
	"github.com/emberworks/emberchat/internal/store"
)

// MinPasswordLen is checked before the provider is called.
const MinPasswordLen = 6

// Flow runs the auth operations. It owns the single process-wide human
// challenge and the pending OTP confirmation handle; a second OTP request
// overwrites the pending handle, so only one challenge is ever in flight.
type Flow struct {
	provider    auth.Provider
	store       store.Store
	surface     prompt.Surface
	countryCode string
	log         zerolog.Logger

	mu        sync.Mutex
	challenge auth.HumanChallenge
	pending   auth.PendingConfirmation
}

func New(provider auth.Provider, st store.Store, surface prompt.Surface, countryCode string, log zerolog.Logger) *Flow {
	return &Flow{
		provider:    provider,
		store:       st,
		surface:     surface,
		countryCode: countryCode,
		log:         log,
	}
}

// Init registers the human-verification challenge once at startup.
func (f *Flow) Init(ctx context.Context) error {
	ch, err := f.provider.RegisterChallenge(ctx, "auth-challenge")
	if err != nil {
		return fmt.Errorf("register challenge: %w", err)
	}
	f.mu.Lock()
	f.challenge = ch
	f.mu.Unlock()
	return nil
}

// SignUp creates an account. A contact containing "@" takes the email path:
// credentials are created, the display name set, an initial offline presence
// record written and the verification email dispatched; no chat session is
// granted until the address verifies. Any other contact is treated as a
// phone number and routed through the OTP challenge.
func (f *Flow) SignUp(ctx context.Context, name, contact, password string) error {
	contact = strings.TrimSpace(contact)

	if !strings.Contains(contact, "@") {
		return f.phoneAuth(ctx, name, contact)
	}

	if len(password) < MinPasswordLen {
		f.surface.Error("Signup Error", auth.ErrWeakCredential.Error())
		return auth.ErrWeakCredential
	}

	identity, err := f.provider.CreateAccount(ctx, contact, password)
	if err != nil {
		f.log.Warn().Err(err).Str("contact", contact).Msg("sign-up rejected")
		f.surface.Error("Signup Error", err.Error())
		return err
	}

	if name == "" {
		name = chatNameFromEmail(contact)
	}
	if err := f.provider.SetDisplayName(ctx, name); err != nil {
		f.log.Warn().Err(err).Msg("display name not set")
	}

	if err := presence.InitRecord(ctx, f.store, identity.ID, name); err != nil {
		f.log.Warn().Err(err).Msg("initial presence record not written")
	}

	if err := f.provider.SendVerificationEmail(ctx); err != nil {
		f.log.Warn().Err(err).Msg("verification dispatch failed")
	}

	f.surface.Warn("Email Verification Required", "Verification link sent to your email.")
	return nil
}

// SignIn authenticates. The email path rejects unverified identities with an
// immediate sign-out; the phone path ignores any supplied password and runs
// the OTP challenge.
func (f *Flow) SignIn(ctx context.Context, contact, password string) error {
	contact = strings.TrimSpace(contact)

	if !strings.Contains(contact, "@") {
		return f.phoneAuth(ctx, "", contact)
	}

	identity, err := f.provider.Authenticate(ctx, contact, password)
	if err != nil {
		f.log.Warn().Err(err).Str("contact", contact).Msg("sign-in rejected")
		f.surface.Error("Login Failed", err.Error())
		return fmt.Errorf("%w: %v", auth.ErrInvalidCredentials, err)
	}

	if !identity.EmailVerified {
		if err := f.provider.SignOut(ctx); err != nil {
			f.log.Warn().Err(err).Msg("sign-out after unverified login failed")
		}
		f.surface.Error("Email Not Verified", "Check your inbox.")
		return auth.ErrNotVerified
	}

	f.surface.Success("Login Successful!", "")
	return nil
}

// phoneAuth normalizes the number and runs the OTP challenge: dispatch the
// code, prompt for it, confirm against the pending handle. Confirm
// establishes the session on success.
func (f *Flow) phoneAuth(ctx context.Context, name, contact string) error {
	number, err := NormalizePhone(contact, f.countryCode)
	if err != nil {
		f.surface.Error("Invalid Number", err.Error())
		return err
	}

	f.mu.Lock()
	challenge := f.challenge
	f.mu.Unlock()

	pending, err := f.provider.BeginPhoneAuth(ctx, number, challenge)
	if err != nil {
		f.log.Warn().Err(err).Str("number", number).Msg("otp dispatch failed")
		f.surface.Error("SMS Error", err.Error())
		return fmt.Errorf("%w: %v", auth.ErrOTPChannel, err)
	}

	// Overwrites any previous handle: one OTP in flight at a time.
	f.mu.Lock()
	f.pending = pending
	f.mu.Unlock()

	code, ok := f.surface.Input("Phone Verification", "Enter the 6-digit OTP sent to your phone", "")
	if !ok {
		return nil
	}

	identity, err := pending.Confirm(ctx, code)
	if err != nil {
		f.log.Warn().Err(err).Msg("otp confirm failed")
		f.surface.Error("Invalid OTP", "")
		return fmt.Errorf("%w: %v", auth.ErrOTPInvalid, err)
	}

	if name != "" {
		if err := f.provider.SetDisplayName(ctx, name); err != nil {
			f.log.Warn().Err(err).Msg("display name not set")
		}
	}
	f.log.Info().Str("user", identity.ID).Msg("phone verified")
	f.surface.Success("Phone Verified!", "")
	return nil
}

// ResetPassword gathers an email address and dispatches a reset link.
// Fire-and-forget: delivery is the provider's problem.
func (f *Flow) ResetPassword(ctx context.Context) error {
	email, ok := f.surface.Input("Reset Password", "Enter your account email", "")
	if !ok {
		return nil
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	if err := f.provider.SendPasswordReset(ctx, email); err != nil {
		f.log.Warn().Err(err).Str("email", email).Msg("reset dispatch failed")
		f.surface.Error("Reset Failed", err.Error())
		return fmt.Errorf("%w: %v", auth.ErrResetDispatch, err)
	}
	f.surface.Success("Reset Email Sent", "Check your inbox.")
	return nil
}

func chatNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
