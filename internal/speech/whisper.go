package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber implements Transcriber using the OpenAI transcription API.
type WhisperTranscriber struct {
	client   *openai.Client
	language string
}

// NewWhisper creates a Whisper transcriber. languageCode may be a BCP-47 tag
// such as "en-US"; only the primary subtag is sent. An empty baseURL uses
// the public OpenAI endpoint.
func NewWhisper(apiKey, languageCode, baseURL string) *WhisperTranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	lang, _, _ := strings.Cut(languageCode, "-")
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(cfg),
		language: strings.ToLower(lang),
	}
}

func (w *WhisperTranscriber) Name() string { return "whisper" }

// Transcribe uploads the stored clip file as-is. AIFF, which the API does
// not accept, is rewrapped as a WAV file next to the clip first.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, clip *Clip) (string, error) {
	path := clip.Path
	if clip.Container == ContainerAIFF {
		path = clip.Path + ".wav"
		if err := clip.WriteWAV(path); err != nil {
			return "", err
		}
		defer os.Remove(path)
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
		Language: w.language,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", ErrUndecodableAudio, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Close is a no-op; the HTTP client needs no teardown.
func (w *WhisperTranscriber) Close() error { return nil }
