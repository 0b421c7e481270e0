// Package chat holds the client-side synchronization core: the message and
// typing channels that reconcile pushed snapshots into view state, the
// composer with its debounced typing emission, and the per-message actions.
package chat

import (
	"strings"

	"github.com/emberworks/emberchat/internal/store"
)

// Message is one chat entry from the chats collection. Only its author may
// edit or delete it.
type Message struct {
	ID         string
	Text       string
	AuthorID   string
	AuthorName string
	CreatedAt  store.Timestamp
	EditedAt   store.Timestamp
	Edited     bool
}

// MessageFromDoc decodes a chats-collection document.
func MessageFromDoc(d store.Doc) Message {
	return Message{
		ID:         d.ID,
		Text:       d.Fields.String("text"),
		AuthorID:   d.Fields.String("authorId"),
		AuthorName: d.Fields.String("authorName"),
		CreatedAt:  d.Fields.Timestamp("createdAt"),
		EditedAt:   d.Fields.Timestamp("editedAt"),
		Edited:     d.Fields.Bool("edited"),
	}
}

// When formats the server timestamp as local HH:MM, or a placeholder while
// the server has not assigned one yet.
func (m Message) When() string {
	if m.CreatedAt.IsZero() {
		return "--:--"
	}
	return m.CreatedAt.Time().Format("15:04")
}

// ShortName trims an email-shaped author name down to its local part.
func ShortName(name string) string {
	if name == "" {
		return "User"
	}
	if at := strings.IndexByte(name, '@'); at > 0 {
		return name[:at]
	}
	return name
}
