package flow_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/auth/memauth"
	"github.com/emberworks/emberchat/internal/flow"
	"github.com/emberworks/emberchat/internal/presence"
	"github.com/emberworks/emberchat/internal/prompt/prompttest"
	"github.com/emberworks/emberchat/internal/store"
	"github.com/emberworks/emberchat/internal/store/memstore"
)

func newFlow(t *testing.T) (*flow.Flow, *memauth.Provider, *memstore.Store, *prompttest.Script) {
	t.Helper()
	provider := memauth.New()
	st := memstore.New()
	script := &prompttest.Script{}
	f := flow.New(provider, st, script, "92", zerolog.Nop())
	require.NoError(t, f.Init(context.Background()))
	return f, provider, st, script
}

func usersSnapshot(t *testing.T, st *memstore.Store) store.Snapshot {
	t.Helper()
	var snap store.Snapshot
	sub, err := st.LiveQuery(store.Users, store.Query{}, func(sn store.Snapshot) { snap = sn })
	require.NoError(t, err)
	sub.Close()
	return snap
}

func TestSignUpEmailCreatesIdentityAndPresence(t *testing.T) {
	f, provider, st, script := newFlow(t)

	err := f.SignUp(context.Background(), "Ayesha", "a@x.com", "secret1")
	require.NoError(t, err)

	// Verification pending, no session granted.
	assert.Nil(t, provider.Session())
	require.NotEmpty(t, script.Notices)
	assert.Equal(t, "warn", script.Notices[len(script.Notices)-1].Level)

	snap := usersSnapshot(t, st)
	require.Len(t, snap, 1, "exactly one presence record")
	rec := presence.RecordFromDoc(snap[0])
	assert.Equal(t, presence.Offline, rec.Status)
	assert.Equal(t, "Ayesha", rec.DisplayName)
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	f, provider, st, script := newFlow(t)

	err := f.SignUp(context.Background(), "", "a@x.com", "short")
	assert.ErrorIs(t, err, auth.ErrWeakCredential)
	assert.Nil(t, provider.Session())
	assert.Empty(t, usersSnapshot(t, st))
	require.NotEmpty(t, script.Errors())
}

func TestSignUpDuplicateAccount(t *testing.T) {
	f, _, _, script := newFlow(t)
	ctx := context.Background()

	require.NoError(t, f.SignUp(ctx, "", "a@x.com", "secret1"))
	err := f.SignUp(ctx, "", "a@x.com", "secret2")
	assert.ErrorIs(t, err, auth.ErrDuplicateAccount)
	require.NotEmpty(t, script.Errors())
}

func TestSignInUnverifiedIsForcedOut(t *testing.T) {
	f, provider, _, script := newFlow(t)
	ctx := context.Background()

	require.NoError(t, f.SignUp(ctx, "", "a@x.com", "secret1"))

	err := f.SignIn(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrNotVerified)
	assert.Nil(t, provider.Session(), "session must be forced back to none")
	require.NotEmpty(t, script.Errors())
	assert.Equal(t, "Email Not Verified", script.Errors()[0].Title)
}

func TestSignInAfterVerification(t *testing.T) {
	f, provider, _, _ := newFlow(t)
	ctx := context.Background()

	require.NoError(t, f.SignUp(ctx, "", "a@x.com", "secret1"))
	provider.MarkVerified("a@x.com")

	require.NoError(t, f.SignIn(ctx, "a@x.com", "secret1"))
	require.NotNil(t, provider.Session())
	assert.Equal(t, "a@x.com", provider.Session().Email)
}

func TestSignInWrongPassword(t *testing.T) {
	f, provider, _, _ := newFlow(t)
	ctx := context.Background()

	require.NoError(t, f.SignUp(ctx, "", "a@x.com", "secret1"))
	provider.MarkVerified("a@x.com")

	err := f.SignIn(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Nil(t, provider.Session())
}

func TestPhoneSignInRunsOTP(t *testing.T) {
	f, provider, _, script := newFlow(t)
	script.Inputs = []prompttest.Response{{Value: memauth.Code, OK: true}}

	// The supplied password is ignored on the phone path.
	require.NoError(t, f.SignIn(context.Background(), "301-2345678", "whatever"))

	require.NotNil(t, provider.Session())
	assert.Equal(t, "+923012345678", provider.Session().PhoneNumber)
}

func TestPhoneOTPMismatch(t *testing.T) {
	f, provider, _, script := newFlow(t)
	script.Inputs = []prompttest.Response{{Value: "000000", OK: true}}

	err := f.SignIn(context.Background(), "03012345678", "")
	assert.ErrorIs(t, err, auth.ErrOTPInvalid)
	assert.Nil(t, provider.Session())
}

func TestPhoneOTPDismissedPromptIsNoop(t *testing.T) {
	f, provider, _, _ := newFlow(t)

	// No scripted input: the prompt is dismissed.
	require.NoError(t, f.SignIn(context.Background(), "03012345678", ""))
	assert.Nil(t, provider.Session())
}

func TestPhoneDispatchFailure(t *testing.T) {
	f, provider, _, script := newFlow(t)
	provider.FailPhoneDispatch = true

	err := f.SignIn(context.Background(), "03012345678", "")
	assert.ErrorIs(t, err, auth.ErrOTPChannel)
	require.NotEmpty(t, script.Errors())
	assert.Equal(t, "SMS Error", script.Errors()[0].Title)
}

func TestResetPassword(t *testing.T) {
	f, _, _, script := newFlow(t)
	ctx := context.Background()

	require.NoError(t, f.SignUp(ctx, "", "a@x.com", "secret1"))

	script.Inputs = []prompttest.Response{{Value: "a@x.com", OK: true}}
	require.NoError(t, f.ResetPassword(ctx))

	script.Inputs = []prompttest.Response{{Value: "nobody@x.com", OK: true}}
	err := f.ResetPassword(ctx)
	assert.ErrorIs(t, err, auth.ErrResetDispatch)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"subscriber number with dash", "301-2345678", "+923012345678"},
		{"already prefixed", "923012345678", "+923012345678"},
		{"plus and spaces", "+92 301 2345678", "+923012345678"},
		{"bare digits", "3012345678", "+923012345678"},
		// The leading zero is kept verbatim, not treated as a trunk prefix.
		{"zero-led national form", "03012345678", "+9203012345678"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := flow.NormalizePhone(tc.in, "92")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := flow.NormalizePhone("not a number", "92")
	assert.ErrorIs(t, err, auth.ErrInvalidContact)
}
