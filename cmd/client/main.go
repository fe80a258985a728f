// SupportChat terminal client: drives one support conversation against the
// backend over the realtime channel, with a local draft database so the
// conversation survives a restart.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/venu-2604/SupportChat/internal/channel"
	"github.com/venu-2604/SupportChat/internal/chat"
	"github.com/venu-2604/SupportChat/internal/config"
	"github.com/venu-2604/SupportChat/internal/draft"
)

func main() {
	// Logs go to stderr so they never interleave with the conversation.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := draft.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open draft database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("Failed to close draft database", "error", closeErr)
		}
	}()

	ch := channel.New(channel.Options{
		URL:               cfg.ServerURL,
		DialTimeout:       cfg.Reconnect.DialTimeout,
		ReconnectAttempts: cfg.Reconnect.Attempts,
		ReconnectDelay:    cfg.Reconnect.Delay,
		ReconnectDelayMax: cfg.Reconnect.DelayMax,
		OnStatus: func(s channel.Status) {
			fmt.Fprintf(os.Stderr, "-- connection %s --\n", s)
		},
	})
	defer func() {
		if closeErr := ch.Close(); closeErr != nil {
			slog.Debug("Failed to close channel", "error", closeErr)
		}
	}()

	ctx := context.Background()
	ui := &console{out: os.Stdout}
	ctrl := chat.NewController(ctx, store, ch, chat.Options{
		PlaceholderTimeout: cfg.PlaceholderTimeout,
		OnChange:           ui.render,
	})

	if err := ch.Connect(ctx); err != nil {
		slog.Warn("Backend unreachable, messages will not be delivered until it returns", "url", cfg.ServerURL, "error", err)
		fmt.Fprintln(os.Stderr, "-- could not reach the support backend; your messages will be kept as drafts --")
	}

	fmt.Println("Customer Support Chat — /end ends the session, /quit exits, /yes and /no answer resolution prompts, /r N sends a suggested question.")

	in := bufio.NewScanner(os.Stdin)
	// Show any conversation recovered from the draft.
	ui.render(ctrl.Snapshot())

	for {
		if !ctrl.Snapshot().Started {
			if !runIntake(ctx, ctrl, in) {
				return
			}
		}
		if !chatLoop(ctx, ctrl, ui, in) {
			return
		}
	}
}

// runIntake collects the intake record and starts the session. Returns
// false when stdin is exhausted.
func runIntake(ctx context.Context, ctrl *chat.Controller, in *bufio.Scanner) bool {
	for {
		cur := ctrl.Snapshot().Intake

		name, ok := prompt(in, "Your name", cur.Name)
		if !ok {
			return false
		}
		email, ok := prompt(in, "Email address", cur.Email)
		if !ok {
			return false
		}
		subject, ok := prompt(in, "What can we help you with?", cur.Subject)
		if !ok {
			return false
		}
		category, ok := prompt(in, "Category (General/Technical/Billing/Account)", cur.Category)
		if !ok {
			return false
		}

		intake := chat.Intake{Name: name, Email: email, Subject: subject, Category: category}
		ctrl.SetIntake(ctx, intake)
		ctrl.StartSession(ctx, intake)
		if ctrl.Snapshot().Started {
			return true
		}
		fmt.Println("Name and subject are required to start a session.")
	}
}

// chatLoop handles the message exchange until the session ends (true) or
// the user quits (false).
func chatLoop(ctx context.Context, ctrl *chat.Controller, ui *console, in *bufio.Scanner) bool {
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return false
		}
		line := strings.TrimSpace(in.Text())

		switch {
		case line == "/quit":
			if ctrl.HasUnsavedWork() {
				fmt.Println("Your conversation is saved; run the client again to continue.")
			}
			return false
		case line == "/end":
			answer, ok := prompt(in, "End this chat session? Your conversation will be discarded. (yes/no)", "no")
			if !ok {
				return false
			}
			if strings.EqualFold(answer, "yes") || strings.EqualFold(answer, "y") {
				ctrl.EndSession(ctx)
				ui.reset()
				return true
			}
		case line == "/yes":
			ctrl.ConfirmResolution(ctx, true)
		case line == "/no":
			ctrl.ConfirmResolution(ctx, false)
		case strings.HasPrefix(line, "/r "):
			sendSuggestion(ctx, ctrl, strings.TrimSpace(strings.TrimPrefix(line, "/r ")))
		default:
			ctrl.SendMessage(ctx, line)
		}
	}
}

// sendSuggestion resolves "/r N" against the latest assistant suggestions.
func sendSuggestion(ctx context.Context, ctrl *chat.Controller, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		fmt.Println("Usage: /r N, where N is a suggestion number.")
		return
	}
	snap := ctrl.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		m := snap.Messages[i]
		if m.Role != chat.RoleAssistant || m.Placeholder {
			continue
		}
		if n > len(m.Related) {
			break
		}
		ctrl.SendSuggestion(ctx, m.Related[n-1])
		return
	}
	fmt.Println("No such suggestion.")
}

func prompt(in *bufio.Scanner, label, fallback string) (string, bool) {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", label, fallback)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !in.Scan() {
		return "", false
	}
	text := strings.TrimSpace(in.Text())
	if text == "" {
		return fallback, true
	}
	return text, true
}

// console renders session snapshots incrementally: each settled message is
// printed once, and the pending-response placeholder is shown while it is
// outstanding.
type console struct {
	mu       sync.Mutex
	out      *os.File
	printed  int
	thinking bool
}

func (c *console) render(s chat.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var settled []chat.Message
	pending := false
	for _, m := range s.Messages {
		if m.Placeholder {
			pending = true
			continue
		}
		settled = append(settled, m)
	}

	if len(settled) < c.printed {
		// Session was reset.
		c.printed = 0
	}
	for _, m := range settled[c.printed:] {
		c.printMessage(m)
	}
	c.printed = len(settled)

	if pending && !c.thinking {
		fmt.Fprintf(c.out, "        %s\n", chat.PlaceholderText)
	}
	c.thinking = pending
}

func (c *console) printMessage(m chat.Message) {
	prefix := "support"
	if m.Role == chat.RoleUser {
		prefix = "you"
	}
	fmt.Fprintf(c.out, "%s: %s\n", prefix, m.Content)

	for i, q := range m.Related {
		fmt.Fprintf(c.out, "        [%d] %s\n", i+1, q)
	}
	if m.ShowResolutionPrompt {
		fmt.Fprintln(c.out, "        (answer with /yes or /no)")
	}
}

func (c *console) reset() {
	c.mu.Lock()
	c.printed = 0
	c.thinking = false
	c.mu.Unlock()
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
