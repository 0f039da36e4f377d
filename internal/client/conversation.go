package client

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digi-assistant/digi/backend/internal/model/chat"
)

// FallbackText replaces the reply whenever a relay call fails.
const FallbackText = "Oops! I'm having trouble connecting right now. Please try again in a moment."

const defaultMaxImageBytes = 10 << 20

var (
	ErrBusy          = errors.New("a message is already being sent")
	ErrNothingToSend = errors.New("nothing to send")
	ErrEmptyImage    = errors.New("image is empty")
	ErrImageTooLarge = errors.New("image exceeds the size limit")
	ErrNotImage      = errors.New("file is not an image")
)

// Image is a picture selected for the next message.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// DataURL renders the image for inline display.
func (i Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func (i Image) filename() string {
	if i.Name == "" {
		return "image"
	}
	return filepath.Base(i.Name)
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithGreeting seeds the list with an assistant greeting.
func WithGreeting(text string) Option {
	return func(c *Conversation) {
		if strings.TrimSpace(text) != "" {
			c.greeting = text
		}
	}
}

// WithMaxImageBytes overrides the 10 MiB selection limit.
func WithMaxImageBytes(n int64) Option {
	return func(c *Conversation) {
		if n > 0 {
			c.maxImageBytes = n
		}
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		c.now = now
	}
}

// Conversation is the append-only message list plus the composer state:
// current input, the selected image and the loading and dialog flags.
type Conversation struct {
	api           API
	greeting      string
	maxImageBytes int64
	now           func() time.Time

	mu         sync.Mutex
	messages   []chat.Message
	input      string
	image      *Image
	preview    string
	loading    bool
	dialogOpen bool
}

// NewConversation creates a conversation backed by api.
func NewConversation(api API, opts ...Option) *Conversation {
	c := &Conversation{
		api:           api,
		maxImageBytes: defaultMaxImageBytes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.greeting != "" {
		c.appendLocked(c.greeting, chat.SenderDigi, "")
	}
	return c
}

// SetInput replaces the composer text. Ignored while a send is in flight.
func (c *Conversation) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return
	}
	c.input = text
}

// Input returns the composer text.
func (c *Conversation) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SelectImage validates data, stores it as the pending image and opens the
// preview dialog.
func (c *Conversation) SelectImage(name string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	if int64(len(data)) > c.maxImageBytes {
		return ErrImageTooLarge
	}
	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return ErrNotImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		return ErrBusy
	}

	img := &Image{Name: name, MediaType: mediaType, Data: data}
	c.image = img
	c.preview = img.DataURL()
	c.dialogOpen = true
	return nil
}

// CancelImage discards the pending image and closes the dialog.
func (c *Conversation) CancelImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearImageLocked()
}

// Preview returns the data URL of the pending image, or "".
func (c *Conversation) Preview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// ImageDialogOpen reports whether the preview dialog is shown.
func (c *Conversation) ImageDialogOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialogOpen
}

// Loading reports whether a send is in flight.
func (c *Conversation) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// CanSend reports whether Send would issue a request.
func (c *Conversation) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSendLocked()
}

// Send appends the user message, makes one relay call and appends either
// the reply or FallbackText. The returned error is the relay failure, if
// any; the conversation has already recorded the fallback by then.
func (c *Conversation) Send(ctx context.Context) (chat.Message, error) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return chat.Message{}, ErrBusy
	}
	if !c.canSendLocked() {
		c.mu.Unlock()
		return chat.Message{}, ErrNothingToSend
	}

	text := c.input
	img := c.image
	c.appendLocked(text, chat.SenderUser, c.preview)
	c.input = ""
	c.loading = true
	c.mu.Unlock()

	var (
		reply string
		err   error
	)
	if img != nil {
		reply, err = c.api.ChatImage(ctx, text, *img)
	} else {
		reply, err = c.api.Chat(ctx, text)
	}
	if err != nil {
		reply = FallbackText
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.appendLocked(reply, chat.SenderDigi, "")
	c.loading = false
	c.clearImageLocked()
	return msg, err
}

// Messages returns a copy of the message list.
func (c *Conversation) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) canSendLocked() bool {
	return !c.loading && (strings.TrimSpace(c.input) != "" || c.image != nil)
}

func (c *Conversation) clearImageLocked() {
	c.image = nil
	c.preview = ""
	c.dialogOpen = false
}

func (c *Conversation) appendLocked(text string, sender chat.Sender, image string) chat.Message {
	msg := chat.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Timestamp: c.now(),
		Image:     image,
	}
	c.messages = append(c.messages, msg)
	return msg
}
