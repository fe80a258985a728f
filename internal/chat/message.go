// Package chat implements the support conversation core: session state,
// draft persistence, and the controller that drives the realtime
// request/response exchange with the support backend.
package chat

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks messages typed (or triggered) by the customer.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the support assistant.
	RoleAssistant Role = "assistant"
)

// ResolutionPromptMarker is the literal sentence the backend embeds in an
// answer when it wants the client to offer the resolved/not-resolved buttons.
// Detection by substring is a compatibility shim for backends that do not
// send the structured show_resolution_prompt flag.
const ResolutionPromptMarker = "✅ Does this answer resolve your issue?"

// PlaceholderText is shown while a response is pending.
const PlaceholderText = "AI is thinking..."

// Canned replies for the resolution sub-protocol. Sent through the normal
// message path without surfacing a text box.
const (
	resolutionConfirmedText = "Yes, that resolves my issue. Thank you!"
	resolutionDeniedText    = "No, I still need help with this."
)

// Message is one immutable entry in the conversation log. JSON field names
// match the persisted draft format of the original web client.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Placeholder marks a transient "response pending" entry. At most one
	// placeholder is outstanding at a time; it is removed atomically when a
	// real response arrives.
	Placeholder bool `json:"isThinking,omitempty"`
	// ShowResolutionPrompt is set when the message carries the
	// resolution-confirmation prompt.
	ShowResolutionPrompt bool `json:"showResolutionButtons,omitempty"`
	// Related holds follow-up question suggestions, preserved verbatim and
	// in order from the inbound payload.
	Related []string `json:"related,omitempty"`
}

// DefaultCategory is used when the intake record does not specify one.
const DefaultCategory = "General"

// Intake is the customer-provided metadata collected before a session
// starts. It is attached to every outbound message even though the session
// identity alone would suffice, so a stateless backend can still correlate.
type Intake struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Category string `json:"category"`
}

// Valid reports whether the intake record is sufficient to start a session.
// Name and subject are required; email is collected but not enforced.
func (i Intake) Valid() bool {
	return !isBlank(i.Name) && !isBlank(i.Subject)
}

// Empty reports whether no intake field has been filled in yet.
func (i Intake) Empty() bool {
	return i.Name == "" && i.Email == "" && i.Subject == ""
}
