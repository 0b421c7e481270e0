package gateway

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/store"
)

func TestEncodeFieldsRewritesSentinel(t *testing.T) {
	out := encodeFields(store.Fields{
		"text":      "hi",
		"createdAt": store.ServerTimestamp,
		"edited":    false,
	})

	assert.Equal(t, serverTimestampToken, out["createdAt"])
	assert.Equal(t, "hi", out["text"])
	assert.Equal(t, false, out["edited"])
}

func TestWireErrTaxonomy(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"weak-password", auth.ErrWeakCredential},
		{"duplicate-account", auth.ErrDuplicateAccount},
		{"invalid-credentials", auth.ErrInvalidCredentials},
		{"otp-invalid", auth.ErrOTPInvalid},
		{"otp-channel", auth.ErrOTPChannel},
		{"reset-dispatch", auth.ErrResetDispatch},
	}
	for _, tc := range cases {
		err := wireErr(&wireError{Code: tc.code, Message: "detail"})
		assert.ErrorIs(t, err, tc.want, tc.code)
		assert.Contains(t, err.Error(), "detail", "backend text survives the mapping")
	}

	err := wireErr(&wireError{Code: "something-new", Message: "detail"})
	assert.Contains(t, err.Error(), "something-new")
	assert.NotNil(t, wireErr(nil))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload, err := json.Marshal(credentialsPayload{Contact: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	raw, err := json.Marshal(envelope{Type: typeAuthenticate, ID: 7, Payload: payload})
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, typeAuthenticate, env.Type)
	assert.Equal(t, uint64(7), env.ID)

	var creds credentialsPayload
	require.NoError(t, json.Unmarshal(env.Payload, &creds))
	assert.Equal(t, "a@x.com", creds.Contact)
}
