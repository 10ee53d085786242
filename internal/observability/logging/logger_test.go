package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "debug", Format: "json"}, &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := WithRequest("speech", "req-1")
	logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "speech" {
		t.Errorf("expected component 'speech', got %v", entry["component"])
	}
	if entry["requestId"] != "req-1" {
		t.Errorf("expected requestId 'req-1', got %v", entry["requestId"])
	}
	if entry["service"] != "debate-coach" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
}

func TestInitWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(Config{Level: "chatty"}, &buf)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level fallback, got %s", zerolog.GlobalLevel())
	}

	log.Debug().Msg("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("expected debug line to be filtered, got %q", buf.String())
	}
}
