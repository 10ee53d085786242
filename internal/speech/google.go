package speech

import (
	"context"
	"fmt"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleTranscriber implements Transcriber using Google Cloud Speech-to-Text.
type GoogleTranscriber struct {
	client       *gspeech.Client
	languageCode string
}

// NewGoogle creates a Google STT client. Without an API key the client uses
// Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogle(ctx context.Context, languageCode, apiKey string) (*GoogleTranscriber, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	c, err := gspeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleTranscriber{client: c, languageCode: languageCode}, nil
}

func (g *GoogleTranscriber) Name() string { return "google" }

// Transcribe sends the clip in a single synchronous Recognize call.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, clip *Clip) (string, error) {
	audio, err := clip.ReadAudio()
	if err != nil {
		return "", err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(clip, g.languageCode),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	text := joinTranscripts(resp.GetResults())
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// Close closes the underlying gRPC connection.
func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

func recognitionConfig(clip *Clip, languageCode string) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{LanguageCode: languageCode}
	switch clip.Encoding {
	case EncodingFLAC:
		// Sample rate and channels come from the FLAC header.
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
	default:
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = int32(clip.SampleRate)
		cfg.AudioChannelCount = int32(clip.Channels)
	}
	return cfg
}

// joinTranscripts concatenates the top alternative of every result.
func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
