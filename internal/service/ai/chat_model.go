package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel adapts an eino chat model (Ark by default) to Provider.
type ChatModel struct {
	name      string
	chatModel model.BaseChatModel
}

// NewChatModel wraps chatModel under the given provider name.
func NewChatModel(name string, chatModel model.BaseChatModel) *ChatModel {
	return &ChatModel{name: name, chatModel: chatModel}
}

func (c *ChatModel) Name() string { return c.name }

// Generate sends a single user turn and returns the reply content.
func (c *ChatModel) Generate(ctx context.Context, req Request) (string, error) {
	response, err := c.chatModel.Generate(ctx, []*schema.Message{buildUserMessage(req)})
	if err != nil {
		return "", fmt.Errorf("failed to run chat model: %w", err)
	}
	if response == nil {
		return "", fmt.Errorf("chat model returned no message")
	}
	return response.Content, nil
}

func buildUserMessage(req Request) *schema.Message {
	if req.Image == nil {
		return schema.UserMessage(req.Text)
	}

	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeText,
				Text: req.Text,
			},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      req.Image.DataURL(),
					MIMEType: req.Image.MediaType,
				},
			},
		},
	}
}
