package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/socketchat-server/internal/proto"
)

type options struct {
	addr string
	user string
	room string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "chatcli",
		Short:         "Interactive terminal client for socketchat",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", "ws://localhost:8080/ws", "WebSocket address")
	root.PersistentFlags().StringVar(&opts.user, "user", "cli-user", "display name")
	root.PersistentFlags().StringVar(&opts.room, "room", "general", "room to join")

	root.AddCommand(newSmokeCmd(opts))
	return root
}

func runChat(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, opts.addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{User: opts.user, Room: opts.room}); err != nil {
		return err
	}

	fmt.Fprintf(out, "Connected to %s as %s in room %s\n", opts.addr, opts.user, opts.room)
	fmt.Fprintln(out, "Type messages and press Enter to send. /typing, /leave, /join <room>. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, out)
	}()

	return writeLoop(ctx, conn, opts, in)
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, out io.Writer) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				fmt.Fprintln(out, "disconnected by the server")
				return
			}
			fmt.Fprintf(out, "read error: %v\n", err)
			return
		}
		if line := render(f); line != "" {
			fmt.Fprintln(out, line)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, opts *options, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	room := opts.room
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			switch {
			case text == "/typing":
				err = send(ctx, conn, proto.InboundTypeTyping, proto.TypingData{Room: room, User: opts.user})
			case text == "/leave":
				err = send(ctx, conn, proto.InboundTypeLeave, proto.LeaveData{Room: room, User: opts.user})
			case strings.HasPrefix(text, "/join "):
				room = strings.TrimSpace(strings.TrimPrefix(text, "/join "))
				err = send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: room, User: opts.user})
			default:
				err = send(ctx, conn, proto.InboundTypeSend, proto.SendData{Room: room, User: opts.user, Message: text})
			}
			if err != nil {
				return err
			}
		}
	}
}

func newSmokeCmd(opts *options) *cobra.Command {
	var (
		text    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Join, send one message and wait for its echo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSmoke(ctx, opts, text, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&text, "text", "hello from smoke test", "message text to send")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "total timeout for the run")
	return cmd
}

func runSmoke(ctx context.Context, opts *options, text string, out io.Writer) error {
	conn, _, err := websocket.Dial(ctx, opts.addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeJoin, proto.JoinData{User: opts.user, Room: opts.room}); err != nil {
		return err
	}
	if err := send(ctx, conn, proto.InboundTypeSend, proto.SendData{Message: text}); err != nil {
		return err
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Fprintln(out, render(f))

		switch f.Type {
		case proto.OutboundTypeError:
			return fmt.Errorf("server error: %s", f.Data)
		case proto.OutboundTypeNewMessage:
			var msg proto.NewMessageData
			if err := json.Unmarshal(f.Data, &msg); err == nil && msg.User == opts.user && msg.Message == text {
				fmt.Fprintln(out, "smoke test passed")
				return nil
			}
		}
	}
}
