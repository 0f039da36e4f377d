package chat

import "time"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderDigi Sender = "digi"
)

// Message is one entry of a client-side conversation.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Image     string    `json:"image,omitempty"` // data URL for inline display
}

// HasImage reports whether the message carries an inline image.
func (m Message) HasImage() bool {
	return m.Image != ""
}
