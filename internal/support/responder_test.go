package support

import (
	"strings"
	"testing"

	"github.com/venu-2604/SupportChat/internal/channel"
)

func msg(content string) channel.ChatMessage {
	return channel.ChatMessage{SessionID: "s-1", Content: content, Category: "General"}
}

func TestReplyAnswersKnownFAQ(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	reply := r.Reply(msg("What are your business hours?"))

	if !strings.Contains(reply.Content, "Monday through Friday") {
		t.Errorf("content = %q", reply.Content)
	}
	if reply.ShowResolutionPrompt {
		t.Error("informational answer should not carry the resolution prompt")
	}
}

func TestReplySuggestsResolutionForSolvedProblems(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	// Question reads like a problem, answer contains solution steps and is
	// long enough.
	reply := r.Reply(msg("How do I reset my password?"))

	if !reply.ShowResolutionPrompt {
		t.Fatal("expected the resolution prompt")
	}
	if !strings.Contains(reply.Content, "✅ Does this answer resolve your issue?") {
		t.Errorf("marker sentence missing: %q", reply.Content)
	}
}

func TestReplyFallbackForUnknownQuestion(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	reply := r.Reply(msg("what is the airspeed velocity of an unladen swallow"))

	if reply.Content != fallbackReply {
		t.Errorf("content = %q", reply.Content)
	}
	if len(reply.Related) == 0 {
		t.Error("no related suggestions offered")
	}
}

func TestReplyEscalatesAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	var reply channel.BotMessage
	for i := 0; i < escalationThreshold; i++ {
		reply = r.Reply(msg("unanswerable question"))
	}
	if reply.Content != escalatingReply {
		t.Errorf("content after %d failures = %q", escalationThreshold, reply.Content)
	}

	// The counter resets with the escalation.
	if got := r.Reply(msg("unanswerable question")); got.Content != fallbackReply {
		t.Errorf("content after escalation = %q", got.Content)
	}
}

func TestReplyFailureCounterIsPerSession(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	for i := 0; i < escalationThreshold-1; i++ {
		r.Reply(channel.ChatMessage{SessionID: "a", Content: "no idea"})
	}
	reply := r.Reply(channel.ChatMessage{SessionID: "b", Content: "no idea"})
	if reply.Content != fallbackReply {
		t.Errorf("session b inherited session a's failures: %q", reply.Content)
	}
}

func TestReplyKnownAnswerResetsFailures(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	for i := 0; i < escalationThreshold-1; i++ {
		r.Reply(msg("no idea"))
	}
	r.Reply(msg("What are your business hours?"))

	if got := r.Reply(msg("no idea")); got.Content != fallbackReply {
		t.Errorf("failure counter not reset: %q", got.Content)
	}
}

func TestReplyEscalationTriggers(t *testing.T) {
	t.Parallel()

	for _, trigger := range []string{"!escalate", "/escalate", "escalate now", "Please Escalate"} {
		trigger := trigger
		t.Run(trigger, func(t *testing.T) {
			t.Parallel()

			r := NewResponder()
			if got := r.Reply(msg(trigger)); got.Content != escalatedReply {
				t.Errorf("content = %q", got.Content)
			}
		})
	}
}

func TestReplyResolutionConfirmation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		content string
		want    string
	}{
		{"Yes, that resolves my issue. Thank you!", resolvedReply},
		{"that helps, thanks", resolvedReply},
		{"Problem solved!", resolvedReply},
		{"No, I still need help with this.", fallbackReply},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.content, func(t *testing.T) {
			t.Parallel()

			r := NewResponder()
			if got := r.Reply(msg(tc.content)); got.Content != tc.want {
				t.Errorf("Reply(%q) = %q, want %q", tc.content, got.Content, tc.want)
			}
		})
	}
}

func TestRelatedQuestionsFollowCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		category string
		wantAny  string
	}{
		{"Billing", "Can I get a refund?"},
		{"Billing Question", "Can I get a refund?"},
		{"technical issue", "Why is the website loading slowly?"},
		{"", "How do I reset my password?"},
		{"Unheard-of Category", "How do I reset my password?"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.category, func(t *testing.T) {
			t.Parallel()

			r := NewResponder()
			reply := r.Reply(channel.ChatMessage{SessionID: "s", Content: "x", Category: tc.category})

			found := false
			for _, q := range reply.Related {
				if q == tc.wantAny {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("related for %q = %v, want to contain %q", tc.category, reply.Related, tc.wantAny)
			}
		})
	}
}

func TestRelatedClickTracking(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	question := "Can I get a refund?"

	r.Reply(channel.ChatMessage{SessionID: "s", Content: question, IsRelatedQuestion: true})
	r.Reply(channel.ChatMessage{SessionID: "s", Content: question, IsRelatedQuestion: true})
	r.Reply(channel.ChatMessage{SessionID: "s", Content: question})

	if got := r.RelatedClicks(question); got != 2 {
		t.Errorf("RelatedClicks() = %d, want 2", got)
	}
}

func TestAddFAQ(t *testing.T) {
	t.Parallel()

	r := NewResponder()
	r.AddFAQ("  How Do I Upgrade My Plan?  ", "Open Billing → Plan and pick the new tier.")

	reply := r.Reply(msg("how do i upgrade my plan?"))
	if !strings.Contains(reply.Content, "pick the new tier") {
		t.Errorf("content = %q", reply.Content)
	}
}
