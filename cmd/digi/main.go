package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/internal/client"
	"github.com/digi-assistant/digi/backend/internal/model/chat"
)

const usage = `Commands:
  /image <path> [caption]  send an image with an optional caption
  /history                 print the conversation so far
  /quit                    exit
Anything else is sent as a text message.`

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("DIGI_API_URL", "http://localhost:3001"), "relay base URL")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-request timeout")
	verbose := flag.Bool("v", false, "log relay errors to stderr")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.NewHTTP(*server, nil)

	var opts []client.Option
	personaCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if p, err := api.Persona(personaCtx); err == nil {
		opts = append(opts, client.WithGreeting(p.Greeting))
	} else {
		logger.Warn("failed to fetch persona", zap.Error(err))
	}
	cancel()

	conv := client.NewConversation(api, opts...)
	repl := &repl{conv: conv, out: os.Stdout, timeout: *timeout, logger: logger}

	for _, m := range conv.Messages() {
		repl.print(m)
	}
	fmt.Fprintln(os.Stdout, usage)

	if err := repl.run(ctx, os.Stdin); err != nil {
		logger.Error("input error", zap.Error(err))
		os.Exit(1)
	}
}

type repl struct {
	conv    *client.Conversation
	out     io.Writer
	timeout time.Duration
	logger  *zap.Logger
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/history":
			for _, m := range r.conv.Messages() {
				r.print(m)
			}
			continue
		case line == "/image" || strings.HasPrefix(line, "/image "):
			if err := r.selectImage(strings.TrimSpace(strings.TrimPrefix(line, "/image"))); err != nil {
				fmt.Fprintf(r.out, "cannot attach image: %v\n", err)
				continue
			}
		default:
			r.conv.SetInput(line)
		}

		r.send(ctx)
	}
}

func (r *repl) selectImage(args string) error {
	path, caption, _ := strings.Cut(args, " ")
	if path == "" {
		return fmt.Errorf("usage: /image <path> [caption]")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := r.conv.SelectImage(path, data); err != nil {
		return err
	}
	r.conv.SetInput(strings.TrimSpace(caption))
	return nil
}

func (r *repl) send(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fmt.Fprintln(r.out, "Digi is thinking...")
	reply, err := r.conv.Send(ctx)
	if err != nil {
		r.logger.Warn("relay call failed", zap.Error(err))
		if reply.Text == "" {
			fmt.Fprintf(r.out, "cannot send: %v\n", err)
			return
		}
	}
	r.print(reply)
}

func (r *repl) print(m chat.Message) {
	name := "You"
	if m.Sender == chat.SenderDigi {
		name = "Digi"
	}
	image := ""
	if m.HasImage() {
		image = " [image]"
	}
	fmt.Fprintf(r.out, "[%s] %s%s: %s\n", m.Timestamp.Format("15:04:05"), name, image, m.Text)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
