package chat

import (
	"context"
	"encoding/json"
	"log/slog"
)

// DraftStore persists one serialized session snapshot so an in-progress
// conversation survives a client restart. Implementations live in
// internal/draft; the controller only needs this subset.
type DraftStore interface {
	// Save overwrites the draft slot with data.
	Save(ctx context.Context, data []byte) error
	// Load returns the stored draft, or (nil, nil) when no draft exists.
	Load(ctx context.Context) ([]byte, error)
	// Clear removes the draft slot.
	Clear(ctx context.Context) error
}

// draftPayload is the persisted snapshot shape. Field names match the
// localStorage draft format of the original web client, so a stored draft is
// portable between the two.
type draftPayload struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	Input     string    `json:"input"`
	Prefill   Intake    `json:"prefill"`
	Started   bool      `json:"started"`
}

func draftFromSession(s *Session) draftPayload {
	return draftPayload{
		SessionID: s.ID,
		Messages:  s.Messages,
		Input:     s.Input,
		Prefill:   s.Intake,
		Started:   s.Started,
	}
}

// restoreSession rebuilds a session from raw draft bytes. Recovery is
// defensive and per-field: anything absent or of the wrong shape falls back
// to its default instead of rejecting the whole draft. A draft that cannot
// be parsed at all yields a fresh session, identical to having no draft.
func restoreSession(raw []byte) *Session {
	s := NewSession()
	if len(raw) == 0 {
		return s
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.Warn("Discarding unreadable chat draft", "error", err)
		return s
	}

	var id string
	if unmarshalField(fields, "sessionId", &id) && id != "" {
		s.ID = id
	}

	var msgs []Message
	if unmarshalField(fields, "messages", &msgs) {
		s.Messages = msgs
	}

	unmarshalField(fields, "input", &s.Input)
	unmarshalField(fields, "started", &s.Started)

	// Prefill recovers per sub-field too: one bad field must not drop the
	// rest of the intake record.
	if rawPrefill, ok := fields["prefill"]; ok {
		var prefill map[string]json.RawMessage
		if err := json.Unmarshal(rawPrefill, &prefill); err == nil {
			unmarshalField(prefill, "name", &s.Intake.Name)
			unmarshalField(prefill, "email", &s.Intake.Email)
			unmarshalField(prefill, "subject", &s.Intake.Subject)
			unmarshalField(prefill, "category", &s.Intake.Category)
		}
	}
	if s.Intake.Category == "" {
		s.Intake.Category = DefaultCategory
	}

	return s
}

// unmarshalField decodes one named field into dst, reporting success.
// Missing or malformed fields leave dst untouched.
func unmarshalField(fields map[string]json.RawMessage, name string, dst any) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
