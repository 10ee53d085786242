// Package coachclient talks to the debate coach backend over HTTP.
package coachclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"debatecoach/models"
)

const DefaultBaseURL = "http://127.0.0.1:5000"

// APIError is a non-200 answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL; an empty baseURL uses DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the audio file at path and returns its transcript.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.Transcription
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Evaluate asks the backend to score an argument on a topic.
func (c *Client) Evaluate(ctx context.Context, topic, text string) (models.Evaluation, error) {
	payload, err := json.Marshal(models.EvaluateArgumentRequest{Topic: topic, Text: text})
	if err != nil {
		return models.Evaluation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluate-argument", bytes.NewReader(payload))
	if err != nil {
		return models.Evaluation{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.Evaluation
	if err := c.do(req, &out); err != nil {
		return models.Evaluation{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}
