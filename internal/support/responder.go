// Package support implements the development/demo support backend: a
// websocket endpoint answering chat messages from an in-memory FAQ
// responder. All state lives in process memory; the backend persists
// nothing.
package support

import (
	"fmt"
	"strings"
	"sync"

	"github.com/venu-2604/SupportChat/internal/channel"
)

// resolutionPromptSuffix is appended to answers that look like a complete
// solution. The client detects the leading marker sentence to show its
// resolved/not-resolved buttons.
const resolutionPromptSuffix = "\n\n✅ Does this answer resolve your issue? If so, please let me know by saying 'yes, resolved' or 'that helps, thanks'."

const (
	fallbackReply   = "I'm not sure about that. Could you rephrase or provide more details?"
	resolvedReply   = "Great! I've marked your case as resolved. Thank you for confirming!"
	escalatedReply  = "I've escalated this case to a human agent. You'll be contacted shortly."
	escalatingReply = "I'm escalating your request to a human agent. You'll be contacted soon."
)

// escalationThreshold is how many consecutive unanswered messages trigger an
// automatic escalation.
const escalationThreshold = 5

// resolutionKeywords mark a user message as a satisfied confirmation.
var resolutionKeywords = []string{
	"yes, resolved", "that helps, thanks", "resolved", "solved", "fixed",
	"that works", "perfect", "thank you", "thanks", "great", "awesome",
	"that answers it", "that's what i needed", "exactly what i needed",
	"problem solved", "issue resolved", "all set", "good to go",
}

// escalationTriggers immediately hand the conversation to a human.
var escalationTriggers = map[string]bool{
	"!escalate":       true,
	"/escalate":       true,
	"escalate now":    true,
	"please escalate": true,
}

// solutionIndicators suggest an answer contains actionable steps.
var solutionIndicators = []string{
	"here's how", "follow these steps", "to fix this", "solution is",
	"you need to", "try this", "do the following", "here's what",
	"the issue is", "this should resolve", "this will fix",
}

// problemIndicators suggest a question describes a problem to solve.
var problemIndicators = []string{
	"how do i", "how can i", "why is", "what's wrong", "not working",
	"error", "problem", "issue", "trouble", "help", "fix", "solve",
}

// fallbackQuestions provide related-question suggestions per category when
// no better source exists.
var fallbackQuestions = map[string][]string{
	"General": {
		"How do I reset my password?",
		"What are your business hours?",
		"How do I contact customer support?",
	},
	"Technical": {
		"Why is the website loading slowly?",
		"I'm getting an error message, what should I do?",
		"How do I enable two-factor authentication?",
	},
	"Billing": {
		"How do I update my payment method?",
		"When will I be charged for my subscription?",
		"Can I get a refund?",
	},
	"Account": {
		"How do I delete my account?",
		"Can I change my email address?",
		"How do I export my data?",
	},
}

// defaultFAQs seed the responder so the demo backend answers something
// useful out of the box.
var defaultFAQs = map[string]string{
	"how do i reset my password?":               "To fix this, open Settings → Security, choose \"Reset password\", and follow the email we send you.",
	"what are your business hours?":             "Our support team is available Monday through Friday, 9am to 6pm UTC.",
	"how do i update my payment method?":        "You need to go to Billing → Payment methods, remove the old card, and add the new one. This should resolve any failed charges.",
	"when will i be charged for my subscription?": "Subscriptions are charged on the first day of each billing cycle, shown under Billing → Invoices.",
	"how do i contact customer support?":        "You already have! You can also email support@example.com for anything this chat cannot solve.",
	"how do i delete my account?":               "You need to open Account → Danger zone and choose \"Delete account\". The deletion is permanent after 14 days.",
}

// Responder produces assistant replies for incoming chat messages. All
// lookup and counters are in memory; restarting the server resets them.
type Responder struct {
	mu sync.Mutex
	// faqs maps lowercased questions to answers.
	faqs map[string]string
	// failures counts consecutive unanswered messages per session.
	failures map[string]int
	// relatedClicks counts suggestion usage per question text.
	relatedClicks map[string]int
}

// NewResponder returns a responder seeded with the default FAQ table.
func NewResponder() *Responder {
	faqs := make(map[string]string, len(defaultFAQs))
	for q, a := range defaultFAQs {
		faqs[q] = a
	}
	return &Responder{
		faqs:          faqs,
		failures:      make(map[string]int),
		relatedClicks: make(map[string]int),
	}
}

// AddFAQ registers an additional question/answer pair.
func (r *Responder) AddFAQ(question, answer string) {
	r.mu.Lock()
	r.faqs[strings.ToLower(strings.TrimSpace(question))] = answer
	r.mu.Unlock()
}

// RelatedClicks reports how often the given suggestion was clicked.
func (r *Responder) RelatedClicks(question string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relatedClicks[question]
}

// Reply computes the assistant response for one incoming message.
func (r *Responder) Reply(req channel.ChatMessage) channel.BotMessage {
	content := strings.TrimSpace(req.Content)
	related := relatedQuestions(req.Category)

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.IsRelatedQuestion && content != "" {
		r.relatedClicks[content]++
	}

	if escalationTriggers[strings.ToLower(content)] {
		delete(r.failures, req.SessionID)
		return channel.BotMessage{Content: escalatedReply, Related: related}
	}

	if isResolutionConfirmation(content) {
		delete(r.failures, req.SessionID)
		return channel.BotMessage{Content: resolvedReply, Related: related}
	}

	if answer, ok := r.faqs[strings.ToLower(content)]; ok {
		delete(r.failures, req.SessionID)
		if shouldSuggestResolution(answer, content) {
			return channel.BotMessage{
				Content:              answer + resolutionPromptSuffix,
				Related:              related,
				ShowResolutionPrompt: true,
			}
		}
		return channel.BotMessage{Content: answer, Related: related}
	}

	r.failures[req.SessionID]++
	if r.failures[req.SessionID] >= escalationThreshold {
		delete(r.failures, req.SessionID)
		return channel.BotMessage{Content: escalatingReply, Related: related}
	}

	return channel.BotMessage{Content: fallbackReply, Related: related}
}

func isResolutionConfirmation(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	for _, kw := range resolutionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// shouldSuggestResolution reports whether an answer is substantial enough to
// offer the resolution prompt: it must read like a solution to something
// that reads like a problem.
func shouldSuggestResolution(answer, question string) bool {
	answerLower := strings.ToLower(answer)
	questionLower := strings.ToLower(question)

	hasSolution := false
	for _, ind := range solutionIndicators {
		if strings.Contains(answerLower, ind) {
			hasSolution = true
			break
		}
	}
	isProblem := false
	for _, ind := range problemIndicators {
		if strings.Contains(questionLower, ind) {
			isProblem = true
			break
		}
	}
	return hasSolution && isProblem && len(answer) > 50
}

// relatedQuestions returns suggestions for the message's category.
// Categories arrive in display form ("General Question"); only the first
// word matters.
func relatedQuestions(category string) []string {
	key := "General"
	if fields := strings.Fields(category); len(fields) > 0 {
		word := strings.ToLower(fields[0])
		normalized := strings.ToUpper(word[:1]) + word[1:]
		if _, ok := fallbackQuestions[normalized]; ok {
			key = normalized
		}
	}
	return append([]string(nil), fallbackQuestions[key]...)
}

// String implements fmt.Stringer for debug logging.
func (r *Responder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("support.Responder{faqs: %d, sessions_pending_escalation: %d}", len(r.faqs), len(r.failures))
}
