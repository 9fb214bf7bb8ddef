package research

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIResearch answers research prompts through an OpenAI-compatible
// chat endpoint.
type OpenAIResearch struct {
	model  string
	client *openai.Client
}

// NewOpenAIResearchParams configures an OpenAIResearch client. BaseURL is
// optional and allows pointing at any OpenAI-compatible server.
type NewOpenAIResearchParams struct {
	Model   string
	BaseURL string
	APIKey  string
}

func NewOpenAIResearch(params NewOpenAIResearchParams) (*OpenAIResearch, error) {
	if params.APIKey == "" {
		return nil, errors.New("research: missing API key")
	}
	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &OpenAIResearch{
		model:  params.Model,
		client: &client,
	}, nil
}

// Ask sends a single-turn prompt and returns the assistant text.
func (c *OpenAIResearch) Ask(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", errors.New("research: empty completion")
	}
	return response.Choices[0].Message.Content, nil
}
