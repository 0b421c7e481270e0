package auth

import "errors"

// Client error taxonomy. Remote failures are wrapped around one of these
// sentinels at the call site so callers can branch with errors.Is while the
// provider's own message text stays visible in the alert.
var (
	ErrWeakCredential     = errors.New("password must be at least 6 characters")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidContact     = errors.New("invalid contact")
	ErrOTPInvalid         = errors.New("invalid otp code")
	ErrOTPChannel         = errors.New("otp dispatch failed")
	ErrResetDispatch      = errors.New("password reset dispatch failed")
	ErrSendFailed         = errors.New("message send failed")
	ErrEditFailed         = errors.New("message edit failed")
	ErrDeleteFailed       = errors.New("message delete failed")
	ErrPresenceWrite      = errors.New("presence write failed")
)
