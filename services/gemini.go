package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// ErrContentBlocked is returned when the model produced no usable text,
// either because the prompt or the answer was blocked by a safety filter or
// because the reply was empty.
var ErrContentBlocked = errors.New("model reply blocked or empty")

// TextGenerator produces a free-text completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator implements TextGenerator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator creates a client for modelName. temperature <= 0 keeps
// the model default.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	if temperature > 0 {
		model.SetTemperature(temperature)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate calls the model once. Blocked or empty replies map to
// ErrContentBlocked; every other failure is returned unchanged.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return replyText(g.model.GenerateContent(ctx, genai.Text(prompt)))
}

func replyText(resp *genai.GenerateContentResponse, err error) (string, error) {
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", ErrContentBlocked
		}
		return "", err
	}

	text := cleanModelOutput(responseText(resp))
	if text == "" {
		return "", ErrContentBlocked
	}
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```markdown")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
