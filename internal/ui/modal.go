package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type modalKind int

const (
	modalNotice modalKind = iota
	modalInput
	modalConfirm
)

// modal is one pending dialog. Notices carry no resp channel; input and
// confirm dialogs resolve the waiting flow goroutine through resp.
type modal struct {
	kind    modalKind
	level   string // notice severity: info, success, warn, error
	title   string
	text    string
	initial string
	resp    chan modalResult
}

type activeModal struct {
	modal
	input textinput.Model
}

func newActiveModal(m modal) *activeModal {
	am := &activeModal{modal: m}
	if m.kind == modalInput {
		in := textinput.New()
		in.CharLimit = 256
		in.Width = 40
		in.SetValue(m.initial)
		in.Focus()
		am.input = in
	}
	return am
}

// handleKey processes a key while the modal is up. done reports whether the
// modal resolved and should be dismissed.
func (am *activeModal) handleKey(msg tea.KeyMsg) (done bool, cmd tea.Cmd) {
	switch am.kind {
	case modalNotice:
		switch msg.String() {
		case "enter", "esc", " ":
			return true, nil
		}
		return false, nil

	case modalConfirm:
		switch msg.String() {
		case "y", "Y", "enter":
			am.resp <- modalResult{ok: true}
			return true, nil
		case "n", "N", "esc":
			am.resp <- modalResult{ok: false}
			return true, nil
		}
		return false, nil

	case modalInput:
		switch msg.String() {
		case "enter":
			am.resp <- modalResult{value: am.input.Value(), ok: true}
			return true, nil
		case "esc":
			am.resp <- modalResult{ok: false}
			return true, nil
		}
		am.input, cmd = am.input.Update(msg)
		return false, cmd
	}
	return false, nil
}

func (am *activeModal) view(width int) string {
	var s strings.Builder

	title := am.title
	switch am.level {
	case "error":
		title = errorStyle.Render(title)
	case "warn":
		title = warnStyle.Render(title)
	case "success":
		title = successStyle.Render(title)
	default:
		title = titleStyle.Render(title)
	}
	s.WriteString(title + "\n")

	if am.text != "" {
		s.WriteString("\n" + am.text + "\n")
	}

	switch am.kind {
	case modalNotice:
		s.WriteString("\n" + helpStyle.Render("Enter to dismiss"))
	case modalConfirm:
		s.WriteString("\n" + helpStyle.Render("y to confirm • n to cancel"))
	case modalInput:
		s.WriteString("\n" + am.input.View() + "\n\n")
		s.WriteString(helpStyle.Render("Enter to submit • Esc to cancel"))
	}

	box := boxStyle.Render(s.String())
	if width > 0 {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, box)
	}
	return box
}
