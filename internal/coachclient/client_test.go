package coachclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"debatecoach/models"
)

func TestEvaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/evaluate-argument" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req models.EvaluateArgumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad body: %v", err)
		}
		json.NewEncoder(w).Encode(models.Evaluation{
			RationalityScore: 0.7,
			ReasonForScore:   "ok",
			Feedback:         "topic was " + req.Topic,
			ImprovedArgument: req.Text + "!",
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	eval, err := c.Evaluate(context.Background(), "Homework", "It is useless")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.RationalityScore != 0.7 || eval.Feedback != "topic was Homework" || eval.ImprovedArgument != "It is useless!" {
		t.Errorf("unexpected evaluation %+v", eval)
	}
}

func TestEvaluate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "No text or topic provided"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Evaluate(context.Background(), "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "No text or topic provided" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse{Error: "No file provided"})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "clip.wav" {
			t.Errorf("unexpected filename %s", header.Filename)
		}
		json.NewEncoder(w).Encode(models.Transcription{Text: string(data)})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("pretend audio"), 0o600); err != nil {
		t.Fatal(err)
	}

	text, err := New(srv.URL, time.Second).Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "pretend audio" {
		t.Errorf("unexpected transcript %q", text)
	}
}

func TestTranscribe_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.wav")
	os.WriteFile(path, []byte("x"), 0o600)

	_, err := New(srv.URL, time.Second).Transcribe(context.Background(), path)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "gateway down" {
		t.Fatalf("expected plain text APIError, got %v", err)
	}
}
