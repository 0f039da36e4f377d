package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/digi-assistant/digi/backend/internal/model/chat"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeAPI struct {
	mu         sync.Mutex
	reply      string
	err        error
	block      chan struct{}
	started    chan struct{}
	textCalls  []string
	imageCalls []Image
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) Chat(ctx context.Context, message string) (string, error) {
	f.mu.Lock()
	f.textCalls = append(f.textCalls, message)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.reply, f.err
}

func (f *fakeAPI) ChatImage(ctx context.Context, message string, img Image) (string, error) {
	f.mu.Lock()
	f.imageCalls = append(f.imageCalls, img)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.reply, f.err
}

func TestGreetingSeedsList(t *testing.T) {
	c := NewConversation(&fakeAPI{}, WithGreeting("Hello!"))

	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Sender != chat.SenderDigi || msgs[0].Text != "Hello!" {
		t.Fatalf("unexpected seed messages %+v", msgs)
	}
}

func TestSendAlternatesSenders(t *testing.T) {
	api := &fakeAPI{reply: "sure"}
	c := NewConversation(api)

	const turns = 3
	for i := 0; i < turns; i++ {
		c.SetInput("message")
		if _, err := c.Send(context.Background()); err != nil {
			t.Fatalf("Send err: %v", err)
		}
	}

	msgs := c.Messages()
	if len(msgs) != 2*turns {
		t.Fatalf("expected %d messages, got %d", 2*turns, len(msgs))
	}
	for i, m := range msgs {
		want := chat.SenderUser
		if i%2 == 1 {
			want = chat.SenderDigi
		}
		if m.Sender != want {
			t.Fatalf("message %d: expected sender %s, got %s", i, want, m.Sender)
		}
	}

	seen := make(map[string]bool)
	for _, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate message id %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestSendFailureAppendsFallback(t *testing.T) {
	c := NewConversation(&fakeAPI{err: errors.New("connection refused")})
	c.SetInput("hello")

	msg, err := c.Send(context.Background())
	if err == nil {
		t.Fatal("expected relay error to be returned")
	}
	if msg.Text != FallbackText || msg.Sender != chat.SenderDigi {
		t.Fatalf("expected fallback message, got %+v", msg)
	}
	if c.Loading() {
		t.Fatal("loading must be cleared after a failure")
	}
	if n := len(c.Messages()); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}
}

func TestLoadingWhileRequestPending(t *testing.T) {
	api := &fakeAPI{reply: "done", block: make(chan struct{}), started: make(chan struct{}, 1)}
	c := NewConversation(api)
	c.SetInput("slow question")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Send(context.Background())
	}()

	select {
	case <-api.started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never started")
	}

	if !c.Loading() {
		t.Fatal("expected loading while the request is pending")
	}
	if c.CanSend() {
		t.Fatal("send must be disabled while loading")
	}
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Text != "slow question" {
		t.Fatalf("expected optimistic user message, got %+v", msgs)
	}
	if _, err := c.Send(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for concurrent send, got %v", err)
	}

	close(api.block)
	<-done

	if c.Loading() {
		t.Fatal("expected loading cleared after the reply")
	}
	if c.Input() != "" {
		t.Fatalf("expected input cleared, got %q", c.Input())
	}
}

func TestCanSend(t *testing.T) {
	c := NewConversation(&fakeAPI{reply: "ok"})

	if c.CanSend() {
		t.Fatal("empty input must not be sendable")
	}
	c.SetInput("   ")
	if c.CanSend() {
		t.Fatal("whitespace input must not be sendable")
	}
	if _, err := c.Send(context.Background()); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend, got %v", err)
	}
	if err := c.SelectImage("pic.png", pngBytes); err != nil {
		t.Fatalf("SelectImage err: %v", err)
	}
	if !c.CanSend() {
		t.Fatal("an image alone must be sendable")
	}
}

func TestSelectImageValidation(t *testing.T) {
	c := NewConversation(&fakeAPI{}, WithMaxImageBytes(32))

	if err := c.SelectImage("empty.png", nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if err := c.SelectImage("notes.txt", []byte("plain text")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	big := append(append([]byte{}, pngBytes...), make([]byte, 64)...)
	if err := c.SelectImage("big.png", big); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if c.ImageDialogOpen() {
		t.Fatal("dialog must stay closed after rejected selections")
	}
}

func TestImageSendUsesImageEndpointAndClearsSelection(t *testing.T) {
	api := &fakeAPI{reply: "nice"}
	c := NewConversation(api)

	if err := c.SelectImage("pic.png", pngBytes); err != nil {
		t.Fatalf("SelectImage err: %v", err)
	}
	if !c.ImageDialogOpen() {
		t.Fatal("expected dialog open after selection")
	}
	if !strings.HasPrefix(c.Preview(), "data:image/png;base64,") {
		t.Fatalf("unexpected preview %q", c.Preview())
	}
	c.SetInput("what is this?")

	if _, err := c.Send(context.Background()); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	if len(api.imageCalls) != 1 || len(api.textCalls) != 0 {
		t.Fatalf("expected one image call, got image=%d text=%d", len(api.imageCalls), len(api.textCalls))
	}
	msgs := c.Messages()
	if !msgs[0].HasImage() {
		t.Fatal("user message should carry the preview")
	}
	if c.ImageDialogOpen() || c.Preview() != "" {
		t.Fatal("selection must be cleared after send")
	}
}

func TestCancelImage(t *testing.T) {
	c := NewConversation(&fakeAPI{})
	if err := c.SelectImage("pic.png", pngBytes); err != nil {
		t.Fatalf("SelectImage err: %v", err)
	}

	c.CancelImage()

	if c.ImageDialogOpen() || c.Preview() != "" || c.CanSend() {
		t.Fatal("cancel must discard the selection and close the dialog")
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	c := NewConversation(&fakeAPI{}, WithGreeting("hi"))

	msgs := c.Messages()
	msgs[0].Text = "changed"

	if c.Messages()[0].Text != "hi" {
		t.Fatal("Messages must return a copy")
	}
}
