// Package channel provides the realtime event transport between the support
// client and the backend: named JSON events over a reconnecting websocket.
package channel

import (
	"encoding/json"
	"fmt"
)

// Event names carried on the wire. The names and payload shapes are a de
// facto contract with the backend; they are centralized here so neither side
// works with bare strings.
const (
	// EventChatMessage is emitted by the client for every user message.
	EventChatMessage = "chat_message"
	// EventBotMessage is emitted by the backend with the assistant reply.
	EventBotMessage = "bot_message"
	// EventConnected greets a freshly accepted connection.
	EventConnected = "connected"
	// EventPing and EventPong keep intermediaries from dropping idle
	// connections.
	EventPing = "ping"
	EventPong = "pong"
)

// Envelope frames every websocket message with its event name.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEnvelope marshals an event name and payload into a wire frame.
func EncodeEnvelope(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = b
	}
	b, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return b, nil
}

// ChatMessage is the chat_message payload. Every outbound message carries
// the full intake snapshot alongside the session identity; the redundancy is
// deliberate so a stateless backend can still attribute the conversation.
type ChatMessage struct {
	SessionID    string `json:"session_id"`
	Content      string `json:"content"`
	UserEmail    string `json:"user_email"`
	CustomerName string `json:"customer_name"`
	Subject      string `json:"subject"`
	Category     string `json:"category"`
	// IsRelatedQuestion is set when the message came from clicking a
	// suggested follow-up question rather than free typing.
	IsRelatedQuestion bool `json:"is_related_question,omitempty"`
}

// BotMessage is the bot_message payload as produced by a well-behaved
// backend. Clients must not trust inbound payloads to have this shape; see
// chat.parseBotMessage for the defensive-parsing boundary.
type BotMessage struct {
	Content string   `json:"content"`
	Related []string `json:"related,omitempty"`
	// ShowResolutionPrompt explicitly requests the resolution buttons.
	// Older backends signal this only by embedding the marker sentence in
	// Content.
	ShowResolutionPrompt bool `json:"show_resolution_prompt,omitempty"`
}
