package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"debatecoach/internal/events"
	"debatecoach/internal/observability/logging"
	"debatecoach/internal/observability/metrics"
	"debatecoach/internal/speech"
	"debatecoach/internal/uploads"
)

var (
	transcriber   speech.Transcriber
	uploadStore   *uploads.Store
	speechTimeout time.Duration
)

// InitSpeechService sets the provider and the per-request upload storage.
func InitSpeechService(t speech.Transcriber, store *uploads.Store, timeout time.Duration) {
	transcriber = t
	uploadStore = store
	speechTimeout = timeout
}

// multipartOverhead leaves room for the form boundaries and part headers
// around the audio file.
const multipartOverhead = 64 << 10

// UploadBodyLimit is the largest request body accepted for an upload, or 0
// when uploads are unlimited.
func UploadBodyLimit() int64 {
	if uploadStore == nil || uploadStore.MaxBytes() == 0 {
		return 0
	}
	return uploadStore.MaxBytes() + multipartOverhead
}

// TranscribeUpload stores the audio under a request-unique name, validates
// its header and sends it to the speech provider. The stored file is removed
// before returning, whatever the outcome.
func TranscribeUpload(ctx context.Context, requestID string, audio io.Reader, filename string) (string, error) {
	if transcriber == nil || uploadStore == nil {
		return "", errors.New("speech service not initialized")
	}

	logger := logging.WithRequest("speech", requestID)
	m := metrics.DefaultMetrics
	provider := transcriber.Name()

	file, err := uploadStore.Save(audio, filepath.Ext(filename))
	if err != nil {
		m.RecordTranscription(provider, "rejected")
		return "", err
	}
	defer func() {
		if err := file.Remove(); err != nil {
			logger.Error().Err(err).Str("path", file.Path).Msg("Failed to remove upload")
		}
	}()

	clip, err := speech.OpenClip(file.Path)
	if err != nil {
		m.RecordTranscription(provider, "undecodable")
		logger.Info().Err(err).Str("uploadId", file.ID).Msg("Rejected audio upload")
		return "", err
	}
	if clip.Empty() {
		m.RecordTranscription(provider, "no_speech")
		return "", speech.ErrNoSpeech
	}

	if speechTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, speechTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := transcriber.Transcribe(ctx, clip)
	elapsed := time.Since(start)
	if err != nil {
		outcome := "failed"
		switch {
		case errors.Is(err, speech.ErrNoSpeech):
			outcome = "no_speech"
		case errors.Is(err, speech.ErrUndecodableAudio):
			outcome = "undecodable"
		}
		m.RecordUpstream(provider, elapsed.Seconds(), outcome)
		m.RecordTranscription(provider, outcome)
		logger.Warn().Err(err).Str("uploadId", file.ID).Dur("latency", elapsed).Msg("Transcription failed")
		return "", err
	}

	m.RecordUpstream(provider, elapsed.Seconds(), "")
	m.RecordTranscription(provider, "ok")
	logger.Info().
		Str("uploadId", file.ID).
		Int64("audioBytes", file.Size).
		Int("sampleRate", clip.SampleRate).
		Dur("latency", elapsed).
		Msg("Audio transcribed")

	publishEvent(ctx, logger, events.TypeTranscriptionCompleted, requestID, events.TranscriptionPayload{
		Provider:   provider,
		AudioBytes: file.Size,
		Characters: len(text),
	})
	return text, nil
}
