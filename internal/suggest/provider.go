package suggest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Environment variables consulted when no API key is configured.
const (
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envOpenAIKey    = "OPENAI_API_KEY"
	envGoogleKey    = "GOOGLE_API_KEY"
)

// providers maps provider names to their constructors.
var providers = map[string]func(model, apiKey string) (Provider, error){
	"anthropic": newAnthropicProvider,
	"openai":    newOpenAIProvider,
	"google":    newGoogleProvider,
}

// ProviderNames returns the supported provider names in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultNewProvider dispatches to the named provider. An empty name selects
// anthropic; an empty apiKey falls back to the provider's environment variable.
func defaultNewProvider(providerName, model, apiKey string) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		name = "anthropic"
	}
	newFn, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("suggest: unknown provider %q (available: %s)", providerName, strings.Join(ProviderNames(), ", "))
	}
	return newFn(model, apiKey)
}

func resolveKey(apiKey, envVar string) (string, error) {
	if apiKey != "" {
		return apiKey, nil
	}
	if k := os.Getenv(envVar); k != "" {
		return k, nil
	}
	return "", fmt.Errorf("suggest: no API key configured and %s environment variable not set", envVar)
}

// defaultMaxTokens applies when the caller leaves MaxTokens unset; the
// Anthropic API rejects a zero limit.
const defaultMaxTokens = 2048

// anthropicProvider prefills the assistant turn with "{" so the reply starts
// inside the suggestions object.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(model, apiKey string) (Provider, error) {
	key, err := resolveKey(apiKey, envAnthropicKey)
	if err != nil {
		return nil, err
	}
	return &anthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(key)),
		model:  model,
	}, nil
}

const jsonPrefill = "{"

func (p *anthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(jsonPrefill)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: no suggestion text in response (stop reason %q)", msg.StopReason)
	}
	return jsonPrefill + sb.String(), nil
}
