// Package events fans out completed transcriptions and evaluations to an
// optional external sink (Redis stream or Kafka topic).
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeTranscriptionCompleted = "transcription.completed"
	TypeEvaluationCompleted    = "evaluation.completed"
)

// Event is the envelope written to every sink.
type Event struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// TranscriptionPayload is the payload of a transcription.completed event.
type TranscriptionPayload struct {
	Provider   string `json:"provider"`
	AudioBytes int64  `json:"audioBytes"`
	Characters int    `json:"characters"`
}

// EvaluationPayload is the payload of an evaluation.completed event.
type EvaluationPayload struct {
	Topic            string  `json:"topic"`
	RationalityScore float64 `json:"rationalityScore"`
}

// NewEvent creates a new event with timestamp
func NewEvent(eventType, requestID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:      eventType,
		RequestID: requestID,
		Payload:   payloadBytes,
		Timestamp: time.Now().Unix(),
	}, nil
}

// MarshalEvent marshals an event to a JSON string
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent parses an event written by MarshalEvent.
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("invalid event: missing type")
	}
	return &event, nil
}
