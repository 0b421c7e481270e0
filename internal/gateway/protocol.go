package gateway

import (
	json "github.com/goccy/go-json"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/store"
)

// Wire protocol: every frame is an envelope. Client requests carry a
// correlation id the gateway echoes on the matching result frame; session
// changes and live query snapshots arrive as unsolicited pushes.
type envelope struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request types.
const (
	typeCreateAccount = "auth.create"
	typeAuthenticate  = "auth.signin"
	typeDisplayName   = "auth.display_name"
	typeVerifyEmail   = "auth.send_verification"
	typeResetEmail    = "auth.send_reset"
	typeSignOut       = "auth.signout"
	typeChallenge     = "auth.challenge"
	typePhoneBegin    = "auth.phone.begin"
	typePhoneConfirm  = "auth.phone.confirm"

	typeInsert      = "doc.insert"
	typeUpdate      = "doc.update"
	typeMerge       = "doc.merge"
	typeDelete      = "doc.delete"
	typeSubscribe   = "query.subscribe"
	typeUnsubscribe = "query.unsubscribe"
)

// Push types.
const (
	typeResult   = "result"
	typeSession  = "session"
	typeSnapshot = "snapshot"
)

type resultFrame struct {
	ID    uint64          `json:"id"`
	OK    bool            `json:"ok"`
	Error *wireError      `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// taxonomy maps gateway error codes onto the client sentinels so callers can
// branch with errors.Is while keeping the backend's message text.
var taxonomy = map[string]error{
	"weak-password":       auth.ErrWeakCredential,
	"duplicate-account":   auth.ErrDuplicateAccount,
	"invalid-credentials": auth.ErrInvalidCredentials,
	"invalid-contact":     auth.ErrInvalidContact,
	"otp-invalid":         auth.ErrOTPInvalid,
	"otp-channel":         auth.ErrOTPChannel,
	"reset-dispatch":      auth.ErrResetDispatch,
}

type credentialsPayload struct {
	Contact  string `json:"contact"`
	Password string `json:"password"`
}

type displayNamePayload struct {
	Name string `json:"name"`
}

type resetPayload struct {
	Email string `json:"email"`
}

type challengePayload struct {
	Anchor string `json:"anchor"`
}

type challengeResult struct {
	Challenge string `json:"challenge"`
}

type phoneBeginPayload struct {
	Number    string `json:"number"`
	Challenge string `json:"challenge"`
}

type phoneBeginResult struct {
	Confirmation string `json:"confirmation"`
}

type phoneConfirmPayload struct {
	Confirmation string `json:"confirmation"`
	Code         string `json:"code"`
}

type sessionPush struct {
	Identity *auth.Identity `json:"identity"`
}

type docPayload struct {
	Collection string       `json:"collection"`
	ID         string       `json:"id,omitempty"`
	Fields     store.Fields `json:"fields,omitempty"`
}

type insertResult struct {
	ID string `json:"id"`
}

type subscribePayload struct {
	Subscription uint64     `json:"subscription"`
	Collection   string     `json:"collection"`
	Where        *wireWhere `json:"where,omitempty"`
	OrderBy      *wireOrder `json:"order_by,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

type wireWhere struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type wireOrder struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

type unsubscribePayload struct {
	Subscription uint64 `json:"subscription"`
}

type snapshotPush struct {
	Subscription uint64    `json:"subscription"`
	Docs         []wireDoc `json:"docs"`
}

type wireDoc struct {
	ID     string       `json:"id"`
	Fields store.Fields `json:"fields"`
}

// serverTimestampToken is what the ServerTimestamp sentinel becomes on the
// wire; the gateway resolves it at commit time.
const serverTimestampToken = "__server_timestamp__"

// encodeFields rewrites sentinel values into their wire form.
func encodeFields(fields store.Fields) store.Fields {
	out := make(store.Fields, len(fields))
	for k, v := range fields {
		if v == store.ServerTimestamp {
			out[k] = serverTimestampToken
			continue
		}
		out[k] = v
	}
	return out
}
