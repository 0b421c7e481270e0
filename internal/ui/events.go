package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/emberworks/emberchat/internal/chat"
)

// Background work (flows, channel pushes, session transitions) reaches the
// update loop through the events channel; waitEvent re-arms itself after
// every delivery, the same way the client re-arms its socket listener.

// sessionMsg carries the next view state across a session transition. chat
// is nil on logout; on login it holds the already-subscribed per-login
// components (see newChatSession).
type sessionMsg struct{ chat *chatSession }

type messagesMsg []chat.Message

type typingMsg []string

type restoreMsg string

type showModalMsg struct{ m modal }

func waitEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Surface is the modal alert/dialog implementation handed to the core
// components. Prompting calls block their calling goroutine until the modal
// resolves; they must never be called from the update loop itself.
type Surface struct {
	events chan<- tea.Msg
}

type modalResult struct {
	value string
	ok    bool
}

func (s *Surface) Input(title, text, initial string) (string, bool) {
	resp := make(chan modalResult, 1)
	s.events <- showModalMsg{modal{kind: modalInput, title: title, text: text, initial: initial, resp: resp}}
	r := <-resp
	return r.value, r.ok
}

func (s *Surface) Confirm(title, text string) bool {
	resp := make(chan modalResult, 1)
	s.events <- showModalMsg{modal{kind: modalConfirm, title: title, text: text, resp: resp}}
	return (<-resp).ok
}

func (s *Surface) Info(title, text string)    { s.notice("info", title, text) }
func (s *Surface) Success(title, text string) { s.notice("success", title, text) }
func (s *Surface) Warn(title, text string)    { s.notice("warn", title, text) }
func (s *Surface) Error(title, text string)   { s.notice("error", title, text) }

func (s *Surface) notice(level, title, text string) {
	s.events <- showModalMsg{modal{kind: modalNotice, level: level, title: title, text: text}}
}
