package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session holds the canonical state of one support conversation. Only the
// Controller mutates it; the presentation layer works on copies obtained
// through Controller.Snapshot.
type Session struct {
	// ID is an opaque token correlating the conversation's messages across
	// reconnects. Never empty; replaced only by an explicit end-of-session.
	ID       string
	Intake   Intake
	Messages []Message
	// Input is the pending, not-yet-sent text in the composer.
	Input   string
	Started bool
}

// NewSession returns a fresh, not-started session with a new identity.
func NewSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		Intake: Intake{Category: DefaultCategory},
	}
}

// Append adds a message to the end of the log. The log is append-only;
// insertion order is display order.
func (s *Session) Append(m Message) {
	s.Messages = append(s.Messages, m)
}

// RemovePlaceholders drops all pending-response placeholder entries,
// returning how many were removed. This is the only structural mutation the
// log supports besides appending.
func (s *Session) RemovePlaceholders() int {
	kept := s.Messages[:0]
	removed := 0
	for _, m := range s.Messages {
		if m.Placeholder {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.Messages = kept
	return removed
}

// Start transitions the session to started and seeds the log with the
// greeting. One-way; callers must validate the intake first.
func (s *Session) Start() {
	if s.Started {
		return
	}
	s.Started = true
	s.Append(Message{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("Hello, %s! How can I help you with %q?", s.Intake.Name, s.Intake.Subject),
	})
}

// Reset discards all conversation state and allocates a new identity. The
// old identity is never reused.
func (s *Session) Reset() {
	*s = *NewSession()
}

// HasUnsavedWork reports whether tearing down the session would lose user
// input: a non-empty log or pending text once started, or any filled intake
// field before that.
func (s *Session) HasUnsavedWork() bool {
	if s.Started {
		return len(s.Messages) > 0 || !isBlank(s.Input)
	}
	return !s.Intake.Empty()
}

// clone returns a deep copy safe to hand to the presentation layer.
func (s *Session) clone() Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	for i := range out.Messages {
		if len(out.Messages[i].Related) > 0 {
			out.Messages[i].Related = append([]string(nil), out.Messages[i].Related...)
		}
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
