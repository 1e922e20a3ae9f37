package chat

import (
	"github.com/devmud/devmud-site/internal/domain"
)

// Transcript is the ordered conversation shown in the widget. Entries are only
// ever appended; order is append order, never timestamp or role.
type Transcript struct {
	messages []domain.Message
}

// Append adds a message at the end.
func (t *Transcript) Append(m domain.Message) {
	t.messages = append(t.messages, m)
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the entries in insertion order.
func (t *Transcript) Messages() []domain.Message {
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
