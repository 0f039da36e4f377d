package ai

import (
	"context"

	"github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/digi-assistant/digi/backend/internal/config"
)

// OpenAI sends text and images through the Responses API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates an OpenAI provider. Extra request options (base URL,
// custom HTTP client) are appended after the API key.
func NewOpenAI(cfg config.OpenAIConfig, maxTokens int, opts ...openaioption.RequestOption) *OpenAI {
	opts = append([]openaioption.RequestOption{openaioption.WithAPIKey(cfg.APIKey)}, opts...)
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

func (c *OpenAI) Name() string { return config.ProviderOpenAI }

func (c *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	content := responses.ResponseInputMessageContentListParam{
		{
			OfInputText: &responses.ResponseInputTextParam{
				Text: req.Text,
			},
		},
	}
	if req.Image != nil {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				Detail:   responses.ResponseInputImageDetailAuto,
				ImageURL: openai.String(req.Image.DataURL()),
			},
		})
	}

	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(int64(c.maxTokens)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return "", err
	}

	return resp.OutputText(), nil
}
