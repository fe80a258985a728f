package support

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/venu-2604/SupportChat/internal/channel"
)

func newTestBackend(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub()
	handler := NewWebSocketHandler(hub, NewResponder(), "*", true)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandlerRoundTrip(t *testing.T) {
	t.Parallel()

	hub, url := newTestBackend(t)

	greeted := make(chan string, 1)
	answered := make(chan channel.BotMessage, 1)

	ch := channel.New(channel.Options{URL: url})
	ch.On(channel.EventConnected, func(payload []byte) {
		var data map[string]string
		if json.Unmarshal(payload, &data) == nil {
			select {
			case greeted <- data["sid"]:
			default:
			}
		}
	})
	ch.On(channel.EventBotMessage, func(payload []byte) {
		var msg channel.BotMessage
		if json.Unmarshal(payload, &msg) == nil {
			select {
			case answered <- msg:
			default:
			}
		}
	})

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer ch.Close()

	select {
	case sid := <-greeted:
		if sid == "" {
			t.Error("connected greeting carried no sid")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no connected greeting")
	}
	if got := hub.Count(); got != 1 {
		t.Errorf("hub.Count() = %d, want 1", got)
	}

	err := ch.Send(context.Background(), channel.EventChatMessage, channel.ChatMessage{
		SessionID:    "s-1",
		Content:      "What are your business hours?",
		CustomerName: "Ann",
		Subject:      "Hours",
		Category:     "General",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case msg := <-answered:
		if !strings.Contains(msg.Content, "Monday through Friday") {
			t.Errorf("answer = %q", msg.Content)
		}
		if len(msg.Related) == 0 {
			t.Error("answer carried no related suggestions")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no bot_message received")
	}
}

func TestHandlerIgnoresMalformedFrames(t *testing.T) {
	t.Parallel()

	_, url := newTestBackend(t)

	answered := make(chan channel.BotMessage, 1)
	ch := channel.New(channel.Options{URL: url})
	ch.On(channel.EventBotMessage, func(payload []byte) {
		var msg channel.BotMessage
		if json.Unmarshal(payload, &msg) == nil {
			select {
			case answered <- msg:
			default:
			}
		}
	})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer ch.Close()

	// An event the server does not know, then a chat message. The connection
	// must survive the former.
	if err := ch.Send(context.Background(), "no_such_event", map[string]string{"x": "y"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ch.Send(context.Background(), channel.EventChatMessage, channel.ChatMessage{SessionID: "s", Content: "hello"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case <-answered:
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not survive an unknown event")
	}
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		allowed string
		isDev   bool
		origin  string
		want    bool
	}{
		{"dev allows anything", "https://app.example.com", true, "https://evil.example", true},
		{"wildcard allows anything", "*", false, "https://evil.example", true},
		{"exact match allowed", "https://app.example.com", false, "https://app.example.com", true},
		{"mismatch rejected", "https://app.example.com", false, "https://evil.example", false},
		{"missing origin allowed", "https://app.example.com", false, "", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewWebSocketHandler(NewHub(), NewResponder(), tc.allowed, tc.isDev)
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			if got := h.checkOrigin(r); got != tc.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHandlerRejectsDisallowedOrigin(t *testing.T) {
	t.Parallel()

	handler := NewWebSocketHandler(NewHub(), NewResponder(), "https://app.example.com", false)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Origin", "https://evil.example")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}
