package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	googleoption "google.golang.org/api/option"
)

// suggestionSchema constrains Gemini output to the suggestions document.
var suggestionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"suggestions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"item":      {Type: genai.TypeString},
					"test_step": {Type: genai.TypeString},
					"rationale": {Type: genai.TypeString},
				},
				Required: []string{"item", "test_step"},
			},
		},
	},
	Required: []string{"suggestions"},
}

// geminiProvider holds only the key; each Complete opens and closes its own
// client so the call's context bounds the connection.
type geminiProvider struct {
	apiKey string
	model  string
}

func newGoogleProvider(model, apiKey string) (Provider, error) {
	key, err := resolveKey(apiKey, envGoogleKey)
	if err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: key, model: model}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error) {
	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("google: new client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(p.model)
	m.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	m.SetTemperature(float32(temperature))
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = suggestionSchema

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("google: generate content: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			// first candidate with text wins; candidates are alternatives
			break
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("google: no suggestion text in %d candidates", len(resp.Candidates))
	}
	return sb.String(), nil
}
