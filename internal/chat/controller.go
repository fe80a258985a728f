package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/venu-2604/SupportChat/internal/channel"
)

// persistTimeout bounds draft writes triggered from channel callbacks,
// which have no caller context.
const persistTimeout = 5 * time.Second

// placeholderExpiredText replaces a placeholder that outlived the configured
// timeout.
const placeholderExpiredText = "The assistant is taking longer than expected. Please try sending your message again."

// Channel is the realtime transport the controller emits on and receives
// from. Satisfied by channel.WSChannel; tests substitute a fake.
type Channel interface {
	Send(ctx context.Context, event string, payload any) error
	On(event string, handler func(payload []byte))
}

// Options configure optional controller behavior.
type Options struct {
	// PlaceholderTimeout bounds how long a pending-response placeholder may
	// stay in the log before it is replaced with a retry notice. Zero (the
	// default) keeps the original behavior: the placeholder persists until a
	// response arrives.
	PlaceholderTimeout time.Duration
	// OnChange, when set, receives a snapshot after every state mutation so
	// the presentation layer can re-render. Called outside the controller
	// lock.
	OnChange func(Session)
}

// Controller owns the lifecycle of one support conversation: it binds the
// session state to the realtime channel and the draft store, and exposes the
// operations the presentation layer calls.
//
// Public operations run on the caller's goroutine while inbound events
// arrive on the channel's read goroutine; a single mutex serializes all
// mutations, preserving the one-logical-writer model.
type Controller struct {
	mu      sync.Mutex
	session *Session
	store   DraftStore
	ch      Channel
	opts    Options

	placeholderTimer *time.Timer
}

// NewController builds a controller, restores any persisted draft, and
// subscribes to inbound assistant messages. A missing, empty, or corrupt
// draft yields the same fresh state as having none.
func NewController(ctx context.Context, store DraftStore, ch Channel, opts Options) *Controller {
	c := &Controller{
		session: NewSession(),
		store:   store,
		ch:      ch,
		opts:    opts,
	}

	raw, err := store.Load(ctx)
	if err != nil {
		slog.Warn("Failed to load chat draft, starting fresh", "error", err)
	} else if len(raw) > 0 {
		c.session = restoreSession(raw)
	}

	ch.On(channel.EventBotMessage, c.handleBotMessage)
	return c
}

// Snapshot returns a copy of the current session for rendering.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// HasUnsavedWork reports whether tearing the client down would lose user
// input. The presentation layer uses this to warn before navigation; the
// controller only exposes the predicate.
func (c *Controller) HasUnsavedWork() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.HasUnsavedWork()
}

// SetIntake updates the intake record. Ignored once the session has
// started; the record is immutable after that, though its fields keep being
// transmitted with every outbound message.
func (c *Controller) SetIntake(ctx context.Context, intake Intake) {
	c.mu.Lock()
	if c.session.Started {
		c.mu.Unlock()
		return
	}
	if intake.Category == "" {
		intake.Category = DefaultCategory
	}
	c.session.Intake = intake
	c.persistLocked(ctx)
	snap := c.session.clone()
	c.mu.Unlock()
	c.notify(snap)
}

// SetInput records the pending composer text so it survives a restart.
func (c *Controller) SetInput(ctx context.Context, text string) {
	c.mu.Lock()
	c.session.Input = text
	c.persistLocked(ctx)
	snap := c.session.clone()
	c.mu.Unlock()
	c.notify(snap)
}

// StartSession validates the intake record and transitions to started,
// seeding the log with a greeting. An invalid record (blank name or
// subject) is a silent no-op; the original design surfaces no validation
// feedback.
func (c *Controller) StartSession(ctx context.Context, intake Intake) {
	c.mu.Lock()
	if c.session.Started || !intake.Valid() {
		c.mu.Unlock()
		return
	}
	if intake.Category == "" {
		intake.Category = DefaultCategory
	}
	c.session.Intake = intake
	c.session.Start()
	c.persistLocked(ctx)
	snap := c.session.clone()
	c.mu.Unlock()
	c.notify(snap)
}

// SendMessage appends the user message plus a pending-response placeholder,
// persists, and emits one chat_message event. Blank text is a no-op. The
// placeholder is appended unconditionally: a disconnected channel leaves it
// in place rather than failing the operation.
func (c *Controller) SendMessage(ctx context.Context, text string) {
	c.send(ctx, text, false)
}

// SendSuggestion sends the text of a clicked related-question suggestion,
// flagged so the backend can track suggestion usage.
func (c *Controller) SendSuggestion(ctx context.Context, text string) {
	c.send(ctx, text, true)
}

// ConfirmResolution answers the resolution prompt with a canned
// acknowledgement, through the same path as a typed message.
func (c *Controller) ConfirmResolution(ctx context.Context, confirmed bool) {
	text := resolutionDeniedText
	if confirmed {
		text = resolutionConfirmedText
	}
	c.send(ctx, text, false)
}

// EndSession erases the persisted draft and resets to a fresh session with
// a new identity. The old identity is never reused. Interactive
// confirmation is the presentation layer's job; by the time this is called
// the decision is made.
func (c *Controller) EndSession(ctx context.Context) {
	c.mu.Lock()
	c.stopPlaceholderTimerLocked()
	if err := c.store.Clear(ctx); err != nil {
		slog.Warn("Failed to clear chat draft", "session_id", c.session.ID, "error", err)
	}
	old := c.session.ID
	c.session.Reset()
	snap := c.session.clone()
	c.mu.Unlock()

	slog.Info("Chat session ended", "old_session_id", old, "new_session_id", snap.ID)
	c.notify(snap)
}

func (c *Controller) send(ctx context.Context, text string, related bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	c.session.Append(Message{Role: RoleUser, Content: text})
	c.session.Append(Message{Role: RoleAssistant, Content: PlaceholderText, Placeholder: true})
	c.session.Input = ""
	c.armPlaceholderTimerLocked()
	c.persistLocked(ctx)
	out := channel.ChatMessage{
		SessionID:         c.session.ID,
		Content:           text,
		UserEmail:         c.session.Intake.Email,
		CustomerName:      c.session.Intake.Name,
		Subject:           c.session.Intake.Subject,
		Category:          c.session.Intake.Category,
		IsRelatedQuestion: related,
	}
	snap := c.session.clone()
	c.mu.Unlock()
	c.notify(snap)

	if err := c.ch.Send(ctx, channel.EventChatMessage, out); err != nil {
		// Not fatal: the placeholder stays visible and the transport keeps
		// reconnecting on its own.
		slog.Warn("Failed to emit chat message", "session_id", out.SessionID, "error", err)
	}
}

// handleBotMessage processes an inbound assistant reply: all placeholders
// are removed atomically with the append of the real response. Correlation
// relies solely on placeholder filtering, never on request identity, so a
// stray or late response still leaves the log consistent.
func (c *Controller) handleBotMessage(payload []byte) {
	msg := parseBotMessage(payload)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	c.mu.Lock()
	c.stopPlaceholderTimerLocked()
	c.session.RemovePlaceholders()
	c.session.Append(msg)
	c.persistLocked(ctx)
	snap := c.session.clone()
	c.mu.Unlock()
	c.notify(snap)
}

// parseBotMessage is the defensive-parsing boundary for inbound payloads.
// Nothing about the shape is trusted: missing or malformed fields coerce to
// safe defaults so a bad payload can never break the conversation.
func parseBotMessage(raw []byte) Message {
	m := Message{Role: RoleAssistant}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.Warn("Malformed bot_message payload", "error", err)
		return m
	}

	unmarshalField(fields, "content", &m.Content)

	var related []string
	if unmarshalField(fields, "related", &related) && len(related) > 0 {
		m.Related = related
	}

	// Prefer the structured flag; fall back to the legacy marker sentence
	// embedded in the content.
	var structured bool
	unmarshalField(fields, "show_resolution_prompt", &structured)
	m.ShowResolutionPrompt = structured || strings.Contains(m.Content, ResolutionPromptMarker)

	return m
}

// persistLocked writes the draft through to the store. Every mutation calls
// it before returning, so the stored draft always reflects the in-memory
// state. Failures are logged and swallowed; persistence trouble must not
// break the conversation.
func (c *Controller) persistLocked(ctx context.Context) {
	data, err := json.Marshal(draftFromSession(c.session))
	if err != nil {
		slog.Warn("Failed to encode chat draft", "session_id", c.session.ID, "error", err)
		return
	}
	if err := c.store.Save(ctx, data); err != nil {
		slog.Warn("Failed to persist chat draft", "session_id", c.session.ID, "error", err)
	}
}

func (c *Controller) armPlaceholderTimerLocked() {
	if c.opts.PlaceholderTimeout <= 0 {
		return
	}
	c.stopPlaceholderTimerLocked()
	c.placeholderTimer = time.AfterFunc(c.opts.PlaceholderTimeout, c.expirePlaceholder)
}

func (c *Controller) stopPlaceholderTimerLocked() {
	if c.placeholderTimer != nil {
		c.placeholderTimer.Stop()
		c.placeholderTimer = nil
	}
}

// expirePlaceholder fires when a response never arrived within the
// configured timeout. The placeholder is swapped for a retry notice so the
// conversation is not stuck on "thinking" forever.
func (c *Controller) expirePlaceholder() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	c.mu.Lock()
	c.placeholderTimer = nil
	if c.session.RemovePlaceholders() == 0 {
		c.mu.Unlock()
		return
	}
	c.session.Append(Message{Role: RoleAssistant, Content: placeholderExpiredText})
	c.persistLocked(ctx)
	snap := c.session.clone()
	c.mu.Unlock()

	slog.Warn("Placeholder expired without a response", "session_id", snap.ID)
	c.notify(snap)
}

func (c *Controller) notify(snap Session) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(snap)
	}
}
