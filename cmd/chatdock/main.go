// ABOUTME: Terminal chat dock client: tabs, live messages, and history paging.
// ABOUTME: Wires the websocket connection, event bus, and REST history loader.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/chatdock/internal/bus"
	"github.com/2389/chatdock/internal/config"
	"github.com/2389/chatdock/internal/connection"
	"github.com/2389/chatdock/internal/dock"
	"github.com/2389/chatdock/internal/history"
	"github.com/2389/chatdock/internal/identity"
	"github.com/2389/chatdock/internal/rooms"
	"github.com/2389/chatdock/internal/wire"
)

var (
	dimmed   = color.New(color.Faint)
	incoming = color.New(color.FgCyan)
	warning  = color.New(color.FgYellow)
	failure  = color.New(color.FgRed)
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default: environment variables)")
	name := flag.String("name", "", "Display name, overrides config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *name != "" {
		cfg.Auth.DisplayName = *name
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FromEnv()
}

// newLogger builds the process logger from the logging section. Logs go to
// stderr so they never interleave with the chat output on stdout.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// whoAmI resolves the local identity from the auth token, falling back to a
// guest identity when no token is configured.
func whoAmI(cfg *config.Config) identity.Identity {
	if cfg.Auth.Token != "" {
		if id, err := identity.FromToken(cfg.Auth.Token); err == nil {
			return id
		}
		warning.Println("Auth token present but unreadable, connecting as guest")
	}
	return identity.Anonymous(cfg.Auth.DisplayName)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	self := whoAmI(cfg)
	fmt.Printf("chatdock connected as %s (%s)\n", self.Name, self.UserID)
	fmt.Println("Type a message to send to the active tab. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	conn := connection.Default(connection.Config{
		URL:   cfg.Server.SocketURL,
		Token: cfg.Auth.Token,
		Name:  self.Name,
	}, logger)
	defer connection.ResetDefault()

	removeWatch := conn.Watch(func(s connection.State) {
		switch s {
		case connection.StateConnected:
			dimmed.Printf("[connection] %s\n", s)
		case connection.StateDisconnected:
			warning.Printf("[connection] %s\n", s)
		}
	})
	defer removeWatch()

	if err := conn.Connect(ctx); err != nil {
		failure.Printf("[connection] dial failed: %v\n", err)
		// The dock still works offline; sends are dropped until reconnect.
	}

	b := bus.New(conn, logger)
	go b.Run(ctx)

	httpc := &http.Client{Timeout: cfg.History.RequestTimeout}
	loader := history.NewLoader(cfg.Server.APIBaseURL, cfg.Auth.Token, cfg.History.PageSize, httpc, logger)

	d := dock.New(self, b, rooms.NewController(conn, logger), loader, logger)
	defer d.Close()

	// Print live traffic alongside the dock's own state handling. Both
	// subscribers see every frame; delivery follows registration order.
	unsubPrint := b.Subscribe(wire.KindReceiveMessage, printEnvelope(self))
	defer unsubPrint()
	unsubRoomPrint := b.Subscribe(wire.KindReceiveRoomMessage, printEnvelope(self))
	defer unsubRoomPrint()

	if err := d.Hydrate(ctx); err != nil {
		warning.Printf("[history] could not load conversation list: %v\n", err)
	}

	return inputLoop(ctx, d)
}

// printEnvelope renders an inbound frame to stdout. Own echoes are dimmed;
// everyone else's messages are tinted.
func printEnvelope(self identity.Identity) func(wire.Envelope) {
	return func(env wire.Envelope) {
		var p wire.InboundMessage
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		name := p.SenderName
		if name == "" {
			name = p.SenderID
		}
		scope := ""
		if p.RoomID != "" {
			scope = fmt.Sprintf("#%s ", p.RoomID)
		}
		if p.SenderID == self.UserID {
			dimmed.Printf("%s%s: %s\n", scope, name, p.Message)
			return
		}
		incoming.Printf("%s%s: %s\n", scope, name, p.Message)
	}
}

func inputLoop(ctx context.Context, d *dock.Manager) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if active := d.ActiveTab(); active != "" {
			fmt.Printf("[%s]> ", active)
		} else {
			fmt.Print("> ")
		}

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := handleCommand(ctx, d, input); err != nil {
				failure.Printf("[error] %v\n", err)
			}
			fmt.Println()
			continue
		}

		active := d.ActiveTab()
		if active == "" {
			warning.Println("No active tab. /open <user_id> [title] first.")
			fmt.Println()
			continue
		}
		if err := d.SendMessage(ctx, active, input); err != nil {
			failure.Printf("[error] %v\n", err)
		}
	}
}

func handleCommand(ctx context.Context, d *dock.Manager, input string) error {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/help":
		printHelp()
		return nil

	case "/open":
		id, title, _ := strings.Cut(args, " ")
		if id == "" {
			return fmt.Errorf("usage: /open <user_id> [title]")
		}
		if title == "" {
			title = id
		}
		d.OpenTab(ctx, dock.OpenTabPayload{ID: id, Title: strings.TrimSpace(title)})
		d.ActivateTab(id)
		if err := d.LoadInitial(ctx, id); err != nil {
			warning.Printf("[history] %v\n", err)
		}
		printMessages(d, id)
		return nil

	case "/room":
		if args == "" {
			return fmt.Errorf("usage: /room <room_id>")
		}
		tabID := "room:" + args
		d.OpenTab(ctx, dock.OpenTabPayload{ID: tabID, Title: "#" + args, RoomID: args})
		d.ActivateTab(tabID)
		return nil

	case "/tabs":
		tabs := d.Tabs()
		if len(tabs) == 0 {
			fmt.Println("No open tabs")
			return nil
		}
		active := d.ActiveTab()
		for _, t := range tabs {
			marker := " "
			if t.ID == active {
				marker = "*"
			}
			unread := ""
			if t.Unread > 0 {
				unread = fmt.Sprintf(" (%d unread)", t.Unread)
			}
			fmt.Printf("%s %s: %s, %d messages%s\n", marker, t.ID, t.Title, t.Messages, unread)
		}
		return nil

	case "/switch":
		if args == "" {
			return fmt.Errorf("usage: /switch <tab_id>")
		}
		d.ActivateTab(args)
		printMessages(d, args)
		return nil

	case "/older":
		active := d.ActiveTab()
		if active == "" {
			return fmt.Errorf("no active tab")
		}
		if err := d.LoadOlder(ctx, active); err != nil {
			return err
		}
		printMessages(d, active)
		return nil

	case "/close":
		id := args
		if id == "" {
			id = d.ActiveTab()
		}
		if id == "" {
			return fmt.Errorf("no tab to close")
		}
		d.CloseTab(id)
		return nil

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// printMessages renders a tab's conversation, oldest first.
func printMessages(d *dock.Manager, tabID string) {
	msgs := d.Messages(tabID)
	if len(msgs) == 0 {
		dimmed.Println("(no messages)")
		return
	}
	for _, m := range msgs {
		name := m.SenderName
		if name == "" {
			name = m.SenderID
		}
		fmt.Printf("%s %s: %s\n", dimmed.Sprint(m.CreatedAt.Local().Format("15:04")), name, m.Body)
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /open <user_id> [title]  Open a direct chat tab and load history")
	fmt.Println("  /room <room_id>          Open a room tab and join the room")
	fmt.Println("  /tabs                    List open tabs")
	fmt.Println("  /switch <tab_id>         Focus a tab and show its messages")
	fmt.Println("  /older                   Load the previous history page for the active tab")
	fmt.Println("  /close [tab_id]          Close a tab (default: active)")
	fmt.Println("  /help                    Show this help")
	fmt.Println("  /quit                    Exit")
}
