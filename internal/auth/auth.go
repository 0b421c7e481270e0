// Package auth defines the contract this client expects from the managed
// authentication provider. The provider owns credential verification, session
// tokens, OTP/SMS delivery and the human-verification challenge; the client
// only ever talks to it through these interfaces.
package auth

import "context"

// Identity is the authenticated user record exposed by the provider. Exactly
// one Identity (or none) is active per process; it is swapped wholesale on
// sign-in and sign-out.
type Identity struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Label returns the name shown next to this identity's messages: the display
// name when one was set, otherwise the email or phone number.
func (id *Identity) Label() string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	if id.Email != "" {
		return id.Email
	}
	return id.PhoneNumber
}

// HumanChallenge is an opaque anti-automation check required before phone OTP
// dispatch. One instance is registered at startup and reused by every OTP
// attempt; no concurrent challenges are supported.
type HumanChallenge interface {
	// Anchor reports the UI anchor the challenge was bound to at registration.
	Anchor() string
}

// PendingConfirmation is the handle for an in-flight phone OTP challenge.
// At most one confirmation is pending at a time; a new BeginPhoneAuth call
// overwrites the previous handle.
type PendingConfirmation interface {
	// Confirm checks the 6-digit code the user entered. On success the
	// provider establishes a session for the phone identity and the session
	// change callback fires.
	Confirm(ctx context.Context, code string) (*Identity, error)
}

// Provider is the managed auth backend. Authenticate and
// PendingConfirmation.Confirm establish a session and trigger the
// OnSessionChange callback; CreateAccount does not grant a session, since
// email accounts must verify before their first sign-in.
type Provider interface {
	CreateAccount(ctx context.Context, contact, password string) (*Identity, error)
	Authenticate(ctx context.Context, contact, password string) (*Identity, error)

	// SetDisplayName performs the one-time display name write for the account
	// most recently created or authenticated.
	SetDisplayName(ctx context.Context, name string) error

	SendVerificationEmail(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context) error

	// OnSessionChange registers fn to be called synchronously with the new
	// Identity (nil on sign-out) whenever the provider session changes. The
	// returned func cancels the registration.
	OnSessionChange(fn func(*Identity)) (cancel func())

	// RegisterChallenge creates the single process-wide human-verification
	// challenge, bound to the given UI anchor.
	RegisterChallenge(ctx context.Context, anchor string) (HumanChallenge, error)

	// BeginPhoneAuth dispatches a one-time code to an E.164 number after the
	// challenge passes.
	BeginPhoneAuth(ctx context.Context, number string, challenge HumanChallenge) (PendingConfirmation, error)
}
