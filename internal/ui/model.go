// Package ui is the terminal front end: an auth view, the chat view, and the
// modal alert/dialog surface the core flows report through.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/emberworks/emberchat/internal/auth"
	"github.com/emberworks/emberchat/internal/chat"
	"github.com/emberworks/emberchat/internal/config"
	"github.com/emberworks/emberchat/internal/flow"
	"github.com/emberworks/emberchat/internal/presence"
	"github.com/emberworks/emberchat/internal/session"
	"github.com/emberworks/emberchat/internal/store"
)

type viewState int

const (
	viewAuth viewState = iota
	viewChat
)

type authMode int

const (
	modeSignIn authMode = iota
	modeSignUp
)

type Model struct {
	cfg      *config.Config
	log      zerolog.Logger
	provider auth.Provider
	store    store.Store
	sess     *session.Store
	flow     *flow.Flow

	events  chan tea.Msg
	surface *Surface

	view   viewState
	width  int
	height int

	// Auth view
	mode          authMode
	nameInput     textinput.Model
	contactInput  textinput.Model
	passwordInput textinput.Model
	authFocus     int

	// Chat view
	identity   *auth.Identity
	tracker    *presence.Tracker
	composer   *chat.Composer
	actions    *chat.Actions
	msgChannel *chat.MessageChannel
	typingCh   *chat.TypingChannel
	messages   []chat.Message
	typingLine string
	selected   int
	vp         viewport.Model
	msgInput   textinput.Model

	modal *activeModal
	queue []modal
}

// New wires the model. The auth form is prefilled from the cached profile
// when one exists. The returned Surface is what the flows report through.
func New(cfg *config.Config, provider auth.Provider, st store.Store, sess *session.Store, log zerolog.Logger) (Model, *Surface) {
	events := make(chan tea.Msg, 256)
	surface := &Surface{events: events}

	nameInput := textinput.New()
	nameInput.Placeholder = "Display name"
	nameInput.CharLimit = 32
	nameInput.Width = 30

	contactInput := textinput.New()
	contactInput.Placeholder = "Email or phone"
	contactInput.Focus()
	contactInput.CharLimit = 64
	contactInput.Width = 30

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.CharLimit = 64
	passwordInput.Width = 30

	msgInput := textinput.New()
	msgInput.Placeholder = "Type a message..."
	msgInput.CharLimit = 1000
	msgInput.Width = 50

	m := Model{
		cfg:           cfg,
		log:           log,
		provider:      provider,
		store:         st,
		sess:          sess,
		events:        events,
		surface:       surface,
		nameInput:     nameInput,
		contactInput:  contactInput,
		passwordInput: passwordInput,
		msgInput:      msgInput,
		vp:            viewport.New(80, 20),
		selected:      -1,
		view:          viewAuth,
	}

	if p := session.LoadProfile(cfg.Profile); p != nil {
		m.contactInput.SetValue(p.Contact)
	}

	// The per-login components are built and their subscriptions opened
	// inside the transition itself. Transitions are delivered in order, so
	// the teardown is always registered before any later sweep; only the
	// view swap goes through the update loop.
	sess.Subscribe(func(id *auth.Identity) {
		if id == nil {
			events <- sessionMsg{}
			return
		}
		events <- sessionMsg{chat: newChatSession(cfg, st, sess, surface, events, id, log)}
	})

	return m, surface
}

// chatSession bundles everything one login owns: presence tracker, composer,
// actions, and both live channels.
type chatSession struct {
	identity *auth.Identity
	tracker  *presence.Tracker
	composer *chat.Composer
	actions  *chat.Actions
	msgCh    *chat.MessageChannel
	typingCh *chat.TypingChannel
}

func newChatSession(cfg *config.Config, st store.Store, sess *session.Store, surface *Surface, events chan tea.Msg, id *auth.Identity, log zerolog.Logger) *chatSession {
	cs := &chatSession{identity: id}
	cs.tracker = presence.NewTracker(st, id, log)
	cs.actions = chat.NewActions(st, surface, log)
	cs.composer = chat.NewComposer(st, cs.tracker, surface, id, func(text string) {
		events <- restoreMsg(text)
	}, log)
	cs.composer.SetIdle(cfg.TypingIdle)

	cs.msgCh = chat.NewMessageChannel(st, func(msgs []chat.Message) {
		events <- messagesMsg(msgs)
	}, log)
	cs.msgCh.SetWindow(cfg.WindowSize)
	cs.typingCh = chat.NewTypingChannel(st, id.ID, func(names []string) {
		events <- typingMsg(names)
	}, log)

	if err := cs.msgCh.Subscribe(); err != nil {
		log.Error().Err(err).Msg("message channel subscribe failed")
		surface.Error("Connection Error", err.Error())
	}
	if err := cs.typingCh.Subscribe(); err != nil {
		log.Error().Err(err).Msg("typing channel subscribe failed")
		surface.Error("Connection Error", err.Error())
	}

	sess.AddTeardown(func() {
		cs.composer.Cancel()
		cs.msgCh.Unsubscribe()
		cs.typingCh.Unsubscribe()
	})
	return cs
}

// SetFlow hands the model the auth flow once it is built (the flow needs the
// surface, which New returns).
func (m *Model) SetFlow(f *flow.Flow) { m.flow = f }

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width - 4
		m.vp.Height = msg.Height - 8
		m.refreshViewport()
		return m, nil

	case showModalMsg:
		if m.modal != nil {
			m.queue = append(m.queue, msg.m)
		} else {
			m.modal = newActiveModal(msg.m)
		}
		cmds = append(cmds, waitEvent(m.events))
		return m, tea.Batch(cmds...)

	case sessionMsg:
		cmds = append(cmds, m.applySession(msg.chat)...)
		cmds = append(cmds, waitEvent(m.events))
		return m, tea.Batch(cmds...)

	case messagesMsg:
		m.messages = msg
		if m.selected >= len(m.messages) {
			m.selected = -1
		}
		m.refreshViewport()
		cmds = append(cmds, waitEvent(m.events))
		return m, tea.Batch(cmds...)

	case typingMsg:
		m.typingLine = chat.Indicator(msg)
		cmds = append(cmds, waitEvent(m.events))
		return m, tea.Batch(cmds...)

	case restoreMsg:
		m.msgInput.SetValue(string(msg))
		cmds = append(cmds, waitEvent(m.events))
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.modal != nil {
			done, cmd := m.modal.handleKey(msg)
			if done {
				m.modal = nil
				if len(m.queue) > 0 {
					m.modal = newActiveModal(m.queue[0])
					m.queue = m.queue[1:]
				}
			}
			return m, cmd
		}
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch m.view {
	case viewAuth:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+r":
			if m.mode == modeSignIn {
				m.mode = modeSignUp
			} else {
				m.mode = modeSignIn
			}
			m.authFocus = 0
			m.syncAuthFocus()
			return m, nil
		case "ctrl+p":
			return m, m.resetPasswordCmd()
		case "tab", "shift+tab":
			fields := m.authFieldCount()
			if msg.String() == "tab" {
				m.authFocus = (m.authFocus + 1) % fields
			} else {
				m.authFocus = (m.authFocus + fields - 1) % fields
			}
			m.syncAuthFocus()
			return m, nil
		case "enter":
			return m, m.submitAuthCmd()
		}

		// Route typing to the focused field.
		switch {
		case m.mode == modeSignUp && m.authFocus == 0:
			m.nameInput, _ = m.nameInput.Update(msg)
		case m.authFocus == m.contactFocusIndex():
			m.contactInput, _ = m.contactInput.Update(msg)
		default:
			m.passwordInput, _ = m.passwordInput.Update(msg)
		}
		return m, nil

	case viewChat:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, m.logoutCmd()
		case "up":
			if len(m.messages) > 0 {
				if m.selected == -1 {
					m.selected = len(m.messages) - 1
				} else if m.selected > 0 {
					m.selected--
				}
				m.refreshViewport()
			}
			return m, nil
		case "down":
			if m.selected >= 0 {
				if m.selected < len(m.messages)-1 {
					m.selected++
				} else {
					m.selected = -1
				}
				m.refreshViewport()
			}
			return m, nil
		case "ctrl+e":
			return m, m.editSelectedCmd()
		case "ctrl+x":
			return m, m.deleteSelectedCmd()
		case "enter":
			text := m.msgInput.Value()
			// Optimistic clear; the composer restores it if the send fails.
			m.msgInput.SetValue("")
			return m, m.submitMessageCmd(text)
		}

		before := m.msgInput.Value()
		var cmd tea.Cmd
		m.msgInput, cmd = m.msgInput.Update(msg)
		cmds = append(cmds, cmd)
		if m.msgInput.Value() != before {
			cmds = append(cmds, m.typingCmd())
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// applySession swaps the visible region to match the transition the session
// store already completed.
func (m *Model) applySession(cs *chatSession) []tea.Cmd {
	if cs == nil {
		m.view = viewAuth
		m.identity = nil
		m.tracker = nil
		m.composer = nil
		m.actions = nil
		m.msgChannel = nil
		m.typingCh = nil
		m.messages = nil
		m.typingLine = ""
		m.selected = -1
		m.msgInput.Blur()
		m.authFocus = 0
		m.syncAuthFocus()
		return nil
	}

	id := cs.identity
	m.view = viewChat
	m.identity = id
	m.tracker = cs.tracker
	m.composer = cs.composer
	m.actions = cs.actions
	m.msgChannel = cs.msgCh
	m.typingCh = cs.typingCh

	m.contactInput.Blur()
	m.passwordInput.Blur()
	m.nameInput.Blur()
	m.passwordInput.SetValue("")
	m.msgInput.Focus()

	tracker := m.tracker
	contact := id.Email
	if contact == "" {
		contact = id.PhoneNumber
	}
	profile := &session.Profile{GatewayURL: m.cfg.GatewayURL, Contact: contact}
	profileName := m.cfg.Profile
	log := m.log
	return []tea.Cmd{func() tea.Msg {
		if err := tracker.SetStatus(context.Background(), presence.Online); err != nil {
			log.Warn().Err(err).Msg("online status write failed")
		}
		if err := session.SaveProfile(profileName, profile); err != nil {
			log.Debug().Err(err).Msg("profile cache write failed")
		}
		return nil
	}}
}

// --- Commands ---

func (m Model) submitAuthCmd() tea.Cmd {
	f := m.flow
	mode := m.mode
	name := m.nameInput.Value()
	contact := m.contactInput.Value()
	password := m.passwordInput.Value()
	if contact == "" {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		if mode == modeSignUp {
			f.SignUp(ctx, name, contact, password)
		} else {
			f.SignIn(ctx, contact, password)
		}
		return nil
	}
}

func (m Model) resetPasswordCmd() tea.Cmd {
	f := m.flow
	return func() tea.Msg {
		f.ResetPassword(context.Background())
		return nil
	}
}

func (m Model) submitMessageCmd(text string) tea.Cmd {
	composer := m.composer
	if composer == nil {
		return nil
	}
	return func() tea.Msg {
		composer.Submit(context.Background(), text)
		return nil
	}
}

func (m Model) typingCmd() tea.Cmd {
	composer := m.composer
	if composer == nil {
		return nil
	}
	return func() tea.Msg {
		composer.OnInput(context.Background())
		return nil
	}
}

func (m Model) logoutCmd() tea.Cmd {
	surface := m.surface
	tracker := m.tracker
	provider := m.provider
	log := m.log
	return func() tea.Msg {
		if !surface.Confirm("Log Out?", "") {
			return nil
		}
		ctx := context.Background()
		if tracker != nil {
			if err := tracker.SetStatus(ctx, presence.Offline); err != nil {
				log.Warn().Err(err).Msg("offline status write failed")
			}
		}
		if err := provider.SignOut(ctx); err != nil {
			log.Warn().Err(err).Msg("sign-out failed")
			surface.Error("Logout Failed", err.Error())
		}
		return nil
	}
}

// selectedOwn returns the selected message if it belongs to the current
// identity; edit/delete only exist for self-authored messages.
func (m Model) selectedOwn() (chat.Message, bool) {
	idx := m.selected
	if idx == -1 {
		// Default to the newest own message.
		for i := len(m.messages) - 1; i >= 0; i-- {
			if m.identity != nil && m.messages[i].AuthorID == m.identity.ID {
				return m.messages[i], true
			}
		}
		return chat.Message{}, false
	}
	if idx < 0 || idx >= len(m.messages) {
		return chat.Message{}, false
	}
	msg := m.messages[idx]
	if m.identity == nil || msg.AuthorID != m.identity.ID {
		return chat.Message{}, false
	}
	return msg, true
}

func (m Model) editSelectedCmd() tea.Cmd {
	msg, ok := m.selectedOwn()
	if !ok {
		return nil
	}
	actions := m.actions
	return func() tea.Msg {
		actions.Edit(context.Background(), msg.ID, msg.Text)
		return nil
	}
}

func (m Model) deleteSelectedCmd() tea.Cmd {
	msg, ok := m.selectedOwn()
	if !ok {
		return nil
	}
	actions := m.actions
	return func() tea.Msg {
		actions.Delete(context.Background(), msg.ID)
		return nil
	}
}

// --- Auth focus helpers ---

func (m Model) authFieldCount() int {
	if m.mode == modeSignUp {
		return 3
	}
	return 2
}

func (m Model) contactFocusIndex() int {
	if m.mode == modeSignUp {
		return 1
	}
	return 0
}

func (m *Model) syncAuthFocus() {
	m.nameInput.Blur()
	m.contactInput.Blur()
	m.passwordInput.Blur()
	switch {
	case m.mode == modeSignUp && m.authFocus == 0:
		m.nameInput.Focus()
	case m.authFocus == m.contactFocusIndex():
		m.contactInput.Focus()
	default:
		m.passwordInput.Focus()
	}
}
