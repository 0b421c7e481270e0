package ui

import (
	"fmt"
	"strings"

	"github.com/emberworks/emberchat/internal/chat"
)

func (m Model) View() string {
	if m.modal != nil {
		return "\n\n" + m.modal.view(m.width)
	}

	switch m.view {
	case viewAuth:
		return m.authView()
	case viewChat:
		return m.chatView()
	}
	return ""
}

func (m Model) authView() string {
	var s strings.Builder

	s.WriteString("\n\n")
	s.WriteString(titleStyle.Render("EMBERCHAT"))
	s.WriteString("\n\n")

	if m.mode == modeSignIn {
		s.WriteString(selectedStyle.Render("  → Sign In"))
		s.WriteString(mutedStyle.Render("   Sign Up\n"))
	} else {
		s.WriteString(mutedStyle.Render("  Sign In   "))
		s.WriteString(selectedStyle.Render("→ Sign Up\n"))
	}
	s.WriteString(helpStyle.Render("  (Ctrl+R to switch)\n\n"))

	if m.mode == modeSignUp {
		s.WriteString("  Display name:\n")
		s.WriteString("  " + m.nameInput.View() + "\n\n")
	}

	s.WriteString("  Email or phone:\n")
	s.WriteString("  " + m.contactInput.View() + "\n\n")
	s.WriteString("  Password:\n")
	s.WriteString("  " + m.passwordInput.View() + "\n")
	s.WriteString(helpStyle.Render("  (phone numbers skip the password and get an OTP)\n\n"))

	s.WriteString(helpStyle.Render("  Tab to switch fields • Enter to submit • Ctrl+P to reset password • Ctrl+C to quit\n"))

	return s.String()
}

func (m Model) chatView() string {
	var s strings.Builder

	who := "chat"
	if m.identity != nil {
		who = chat.ShortName(m.identity.Label())
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf("EMBERCHAT · %s", who)))
	s.WriteString("\n")
	s.WriteString(strings.Repeat("─", max(m.width-2, 10)))
	s.WriteString("\n")

	s.WriteString(m.vp.View())
	s.WriteString("\n")

	if m.typingLine != "" {
		s.WriteString(typingStyle.Render(m.typingLine))
	}
	s.WriteString("\n")
	s.WriteString(strings.Repeat("─", max(m.width-2, 10)))
	s.WriteString("\n")
	s.WriteString(m.msgInput.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Enter to send • ↑/↓ select • Ctrl+E edit • Ctrl+X delete • Esc to log out"))

	return s.String()
}

// refreshViewport rebuilds the whole message list from the latest snapshot.
// The rebuild is idempotent: view state is a pure function of the snapshot
// plus the selection.
func (m *Model) refreshViewport() {
	var content strings.Builder
	for i, msg := range m.messages {
		own := m.identity != nil && msg.AuthorID == m.identity.ID

		style := otherMessageStyle
		if own {
			style = ownMessageStyle
		}

		cursor := "  "
		if i == m.selected {
			cursor = selectedStyle.Render("→ ")
		}

		suffix := ""
		if msg.Edited {
			suffix = mutedStyle.Render(" (edited)")
		}

		line := fmt.Sprintf("%s%s %s: %s%s",
			cursor,
			mutedStyle.Render(msg.When()),
			style.Render(chat.ShortName(msg.AuthorName)),
			msg.Text,
			suffix,
		)
		content.WriteString(line + "\n")

		// Edit/delete affordances exist only on the selected own message.
		if own && i == m.selected {
			content.WriteString(helpStyle.Render("     ✏ Ctrl+E edit   🗑 Ctrl+X delete") + "\n")
		}
	}
	m.vp.SetContent(content.String())
	if m.selected == -1 {
		m.vp.GotoBottom()
	}
}
