package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/prompt/prompttest"
	"github.com/emberworks/emberchat/internal/session"
)

func writeFrame(conn *websocket.Conn, typ string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Type: typ, Payload: body})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// readRequest reads frames until one of the wanted type arrives.
func readRequest(conn *websocket.Conn, typ string) (envelope, bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return envelope{}, false
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Type == typ {
			return env, true
		}
	}
}

func answerOK(conn *websocket.Conn, id uint64, data any) error {
	res := resultFrame{ID: id, OK: true}
	if data != nil {
		body, err := json.Marshal(data)
		if err != nil {
			return err
		}
		res.Data = body
	}
	return writeFrame(conn, typeResult, res)
}

// An unverified identity pushed over the socket makes the session store sign
// straight back out. That sign-out is a request/response round trip, so its
// result frame must still be readable while the watcher waits on it, and
// later pushes must keep flowing.
func TestUnverifiedSessionPushKeepsConnectionLive(t *testing.T) {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// The challenge registration sequences the test: once it is answered
		// the client's session watcher is known to be in place.
		env, ok := readRequest(conn, typeChallenge)
		if !ok {
			return
		}
		if err := answerOK(conn, env.ID, challengeResult{Challenge: "tok"}); err != nil {
			return
		}

		if err := writeFrame(conn, typeSession, sessionPush{
			Identity: &auth.Identity{ID: "u1", Email: "a@x.com"},
		}); err != nil {
			return
		}

		env, ok = readRequest(conn, typeSignOut)
		if !ok {
			return
		}
		if err := answerOK(conn, env.ID, nil); err != nil {
			return
		}

		if err := writeFrame(conn, typeSession, sessionPush{
			Identity: &auth.Identity{ID: "u2", Email: "b@x.com", EmailVerified: true},
		}); err != nil {
			return
		}

		// Hold the socket open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(context.Background(), url, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	script := &prompttest.Script{}
	sess := session.New(client, zerolog.Nop())
	sess.SetReporter(script)
	sess.Watch()
	defer sess.Close()

	_, err = client.RegisterChallenge(context.Background(), "auth-challenge")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		cur := sess.Current()
		return cur != nil && cur.ID == "u2"
	}, 2*time.Second, 10*time.Millisecond, "the push after the forced sign-out must still arrive")

	require.NotEmpty(t, script.Errors())
	assert.Equal(t, "Email Not Verified", script.Errors()[0].Title)
}
