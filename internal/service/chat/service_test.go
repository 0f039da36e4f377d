package chat_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/digi-assistant/digi/backend/internal/model/persona"
	"github.com/digi-assistant/digi/backend/internal/service/ai"
	chat "github.com/digi-assistant/digi/backend/internal/service/chat"
	"github.com/digi-assistant/digi/backend/internal/service/upload"
)

type fakeProvider struct {
	reply string
	err   error
	calls []ai.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, req ai.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newService(provider ai.Provider) *chat.Service {
	return chat.NewService(provider, ai.NewPromptBuilder(persona.Default()), zap.NewNop())
}

func savePNG(t *testing.T) *upload.File {
	t.Helper()
	store := upload.NewStore(t.TempDir(), 1024)
	f, err := store.Save(bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrest")), "pic.png")
	if err != nil {
		t.Fatalf("Save err: %v", err)
	}
	return f
}

func TestChatRequiresMessage(t *testing.T) {
	provider := &fakeProvider{reply: "hi"}
	svc := newService(provider)

	for _, msg := range []string{"", "   \n"} {
		if _, err := svc.Chat(context.Background(), msg); !errors.Is(err, chat.ErrMessageRequired) {
			t.Fatalf("expected ErrMessageRequired for %q, got %v", msg, err)
		}
	}
	if len(provider.calls) != 0 {
		t.Fatalf("provider must not be called on validation failure, got %d calls", len(provider.calls))
	}
}

func TestChatWrapsMessageInPersona(t *testing.T) {
	provider := &fakeProvider{reply: "Sure thing!"}
	svc := newService(provider)

	reply, err := svc.Chat(context.Background(), "remind me to water plants")
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply != "Sure thing!" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected exactly one provider call, got %d", len(provider.calls))
	}
	text := provider.calls[0].Text
	if !strings.HasPrefix(text, persona.Default().Identity) || !strings.HasSuffix(text, "remind me to water plants") {
		t.Fatalf("message not wrapped in persona: %q", text)
	}
}

func TestChatProviderFailure(t *testing.T) {
	svc := newService(&fakeProvider{err: errors.New("upstream 529")})

	if _, err := svc.Chat(context.Background(), "hello"); !errors.Is(err, chat.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestChatImageRequiresFile(t *testing.T) {
	svc := newService(&fakeProvider{reply: "ok"})

	if _, err := svc.ChatImage(context.Background(), "look", nil); !errors.Is(err, chat.ErrImageRequired) {
		t.Fatalf("expected ErrImageRequired, got %v", err)
	}
}

func TestChatImageRemovesUploadOnSuccess(t *testing.T) {
	provider := &fakeProvider{reply: "Nice picture"}
	svc := newService(provider)
	file := savePNG(t)

	reply, err := svc.ChatImage(context.Background(), "", file)
	if err != nil {
		t.Fatalf("ChatImage err: %v", err)
	}
	if reply != "Nice picture" {
		t.Fatalf("unexpected reply %q", reply)
	}

	req := provider.calls[0]
	if req.Image == nil || req.Image.MediaType != "image/png" {
		t.Fatalf("expected png image in request, got %+v", req.Image)
	}
	if !strings.HasSuffix(req.Text, persona.Default().ImageFallback) {
		t.Fatalf("expected fallback caption, got %q", req.Text)
	}
	if _, err := os.Stat(file.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected upload removed after success, stat err %v", err)
	}
}

func TestChatImageRemovesUploadOnFailure(t *testing.T) {
	svc := newService(&fakeProvider{err: errors.New("boom")})
	file := savePNG(t)

	if _, err := svc.ChatImage(context.Background(), "what is this", file); !errors.Is(err, chat.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if _, err := os.Stat(file.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected upload removed after failure, stat err %v", err)
	}
}

func TestChatImageDataRequiresBytes(t *testing.T) {
	svc := newService(&fakeProvider{reply: "ok"})

	if _, err := svc.ChatImageData(context.Background(), "x", ai.Image{MediaType: "image/png"}); !errors.Is(err, chat.ErrImageRequired) {
		t.Fatalf("expected ErrImageRequired, got %v", err)
	}
}
