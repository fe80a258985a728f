package chat

import "testing"

func TestRestoreSessionPartialPrefillRecovery(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"sessionId": "s-42",
		"messages": [{"role":"assistant","content":"hi"}],
		"input": "pending",
		"prefill": {"name":"Ann","email":123,"subject":"Billing issue","category":""},
		"started": true
	}`)

	s := restoreSession(raw)

	if s.ID != "s-42" {
		t.Errorf("ID = %q", s.ID)
	}
	if !s.Started || s.Input != "pending" {
		t.Errorf("started=%v input=%q", s.Started, s.Input)
	}
	if len(s.Messages) != 1 || s.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v", s.Messages)
	}
	// One bad sub-field must not drop the rest of the intake record.
	if s.Intake.Name != "Ann" || s.Intake.Subject != "Billing issue" {
		t.Errorf("intake = %+v", s.Intake)
	}
	if s.Intake.Email != "" {
		t.Errorf("malformed email not coerced: %q", s.Intake.Email)
	}
	if s.Intake.Category != DefaultCategory {
		t.Errorf("empty category not defaulted: %q", s.Intake.Category)
	}
}

func TestRestoreSessionEmptyIDGetsFreshIdentity(t *testing.T) {
	t.Parallel()

	s := restoreSession([]byte(`{"sessionId":"","started":false}`))
	if s.ID == "" {
		t.Error("session identity left empty")
	}
}

func TestRestoreSessionDropsUnknownFields(t *testing.T) {
	t.Parallel()

	s := restoreSession([]byte(`{"sessionId":"s-1","theme":"dark","version":9}`))
	if s.ID != "s-1" || s.Started || len(s.Messages) != 0 {
		t.Errorf("unexpected state: %+v", s)
	}
}
