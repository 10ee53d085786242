// Package speech turns stored audio clips into text through an external
// speech-recognition provider.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrNoSpeech means the provider processed the audio but recognized nothing.
	ErrNoSpeech = errors.New("could not understand audio")
	// ErrUndecodableAudio means the upload is not a waveform we can read.
	ErrUndecodableAudio = errors.New("audio could not be decoded")
	// ErrUnavailable means the provider could not be reached or failed.
	ErrUnavailable = errors.New("speech recognition API unavailable")
)

// Transcriber is implemented by every speech-to-text provider.
type Transcriber interface {
	// Transcribe returns the recognized text of the clip.
	Transcribe(ctx context.Context, clip *Clip) (string, error)

	// Name returns the provider name used in logs and metrics.
	Name() string

	// Close releases the provider's client.
	Close() error
}
