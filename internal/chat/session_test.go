package chat

import "testing"

func TestRemovePlaceholders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		messages    []Message
		wantRemoved int
		wantKept    []string
	}{
		{
			name:        "empty log",
			wantRemoved: 0,
		},
		{
			name: "no placeholders",
			messages: []Message{
				{Role: RoleUser, Content: "a"},
				{Role: RoleAssistant, Content: "b"},
			},
			wantRemoved: 0,
			wantKept:    []string{"a", "b"},
		},
		{
			name: "interleaved placeholders keep order",
			messages: []Message{
				{Role: RoleUser, Content: "a"},
				{Role: RoleAssistant, Content: PlaceholderText, Placeholder: true},
				{Role: RoleUser, Content: "b"},
				{Role: RoleAssistant, Content: PlaceholderText, Placeholder: true},
			},
			wantRemoved: 2,
			wantKept:    []string{"a", "b"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := NewSession()
			s.Messages = append(s.Messages, tc.messages...)

			if got := s.RemovePlaceholders(); got != tc.wantRemoved {
				t.Errorf("removed = %d, want %d", got, tc.wantRemoved)
			}
			if len(s.Messages) != len(tc.wantKept) {
				t.Fatalf("kept %d messages, want %d", len(s.Messages), len(tc.wantKept))
			}
			for i, want := range tc.wantKept {
				if s.Messages[i].Content != want {
					t.Errorf("messages[%d] = %q, want %q", i, s.Messages[i].Content, want)
				}
			}
		})
	}
}

func TestStartIsOneWay(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.Intake = Intake{Name: "Ann", Subject: "Billing issue"}
	s.Start()
	s.Start()

	if len(s.Messages) != 1 {
		t.Errorf("greeting seeded %d times", len(s.Messages))
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.Append(Message{Role: RoleAssistant, Content: "a", Related: []string{"q1"}})

	snap := s.clone()
	snap.Messages[0].Content = "mutated"
	snap.Messages[0].Related[0] = "mutated"

	if s.Messages[0].Content != "a" || s.Messages[0].Related[0] != "q1" {
		t.Error("clone shares backing storage with the session")
	}
}
