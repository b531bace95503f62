package suggest

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAIProvider asks the chat completions API for a JSON object so the reply
// can be validated without fence stripping.
type openAIProvider struct {
	client openai.Client
	model  string
}

func newOpenAIProvider(model, apiKey string) (Provider, error) {
	key, err := resolveKey(apiKey, envOpenAIKey)
	if err != nil {
		return nil, err
	}
	return &openAIProvider{
		client: openai.NewClient(option.WithAPIKey(key)),
		model:  model,
	}, nil
}

func (p *openAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	for _, choice := range resp.Choices {
		if choice.Message.Content != "" {
			return choice.Message.Content, nil
		}
	}
	return "", fmt.Errorf("openai: no suggestion text in %d choices", len(resp.Choices))
}
