package routes

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"debatecoach/internal/speech"
	"debatecoach/internal/uploads"
	"debatecoach/middlewares"
	"debatecoach/models"
	"debatecoach/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// scriptedGenerator answers with a fixed reply, or when reply is empty with
// a well formed evaluation whose improved argument echoes the user's text.
type scriptedGenerator struct {
	reply string
	err   error
	delay time.Duration
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	time.Sleep(g.delay)
	if g.err != nil {
		return "", g.err
	}
	if g.reply != "" {
		return g.reply, nil
	}
	argument := prompt[strings.Index(prompt, "The user's argument is: ")+len("The user's argument is: "):]
	argument = argument[:strings.Index(argument, "\n")]
	return fmt.Sprintf(`---
**Rationality Score:** 0.7
**Reasoning for Score:** Mostly reasoned.

**Feedback:**
Cite a source.

**Improved Argument:**
%s
---`, argument), nil
}

type echoTranscriber struct {
	delay time.Duration
	err   error
}

func (e *echoTranscriber) Name() string { return "echo" }
func (e *echoTranscriber) Close() error { return nil }

func (e *echoTranscriber) Transcribe(_ context.Context, clip *speech.Clip) (string, error) {
	time.Sleep(e.delay)
	if e.err != nil {
		return "", e.err
	}
	audio, err := clip.ReadAudio()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(audio), "\x00"), nil
}

func newTestRouter(t *testing.T, gen services.TextGenerator, tr speech.Transcriber, maxBytes int64) *gin.Engine {
	t.Helper()
	store, err := uploads.NewStore(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatal(err)
	}
	services.InitCoachService(gen, 0)
	services.InitSpeechService(tr, store, 0)
	services.InitEventPublisher(nil)

	router := gin.New()
	router.Use(middlewares.RequestID())
	SetupCoachRoutes(router)
	return router
}

func pcmWAV(payload []byte) []byte {
	if len(payload)%2 == 1 {
		payload = append(payload, 0)
	}
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(payload)))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint32(16000))
	binary.Write(&b, binary.LittleEndian, uint32(32000))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(payload)))
	b.Write(payload)
	return b.Bytes()
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/speech-to-text", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func evaluateRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/evaluate-argument", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an error body: %s", w.Body.String())
	}
	return resp.Error
}

func TestHome(t *testing.T) {
	router := newTestRouter(t, &scriptedGenerator{}, &echoTranscriber{}, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("expected html, got %s", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != welcomePage {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestSpeechToText_Transcribes(t *testing.T) {
	router := newTestRouter(t, &scriptedGenerator{}, &echoTranscriber{}, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "file", "clip.wav", pcmWAV([]byte("uniforms reduce bullying"))))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.Transcription
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Text != "uniforms reduce bullying" {
		t.Errorf("unexpected transcription %q", resp.Text)
	}
	if w.Header().Get(middlewares.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestSpeechToText_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tr       *echoTranscriber
		maxBytes int64
		req      func(t *testing.T) *http.Request
		status   int
		msg      string
	}{
		{
			name:     "no file",
			tr:       &echoTranscriber{},
			maxBytes: 1 << 20,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "audio", "clip.wav", pcmWAV([]byte("hi")))
			},
			status: http.StatusBadRequest,
			msg:    "No file provided",
		},
		{
			name:     "silence",
			tr:       &echoTranscriber{},
			maxBytes: 1 << 20,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "clip.wav", pcmWAV(nil))
			},
			status: http.StatusBadRequest,
			msg:    "Could not understand audio",
		},
		{
			name:     "not audio",
			tr:       &echoTranscriber{},
			maxBytes: 1 << 20,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "notes.txt", []byte("just some text, not a wav header"))
			},
			status: http.StatusBadRequest,
			msg:    "Could not understand audio",
		},
		{
			name:     "provider heard nothing",
			tr:       &echoTranscriber{err: speech.ErrNoSpeech},
			maxBytes: 1 << 20,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "clip.wav", pcmWAV([]byte("noise")))
			},
			status: http.StatusBadRequest,
			msg:    "Could not understand audio",
		},
		{
			name:     "provider unavailable",
			tr:       &echoTranscriber{err: fmt.Errorf("%w: connection refused", speech.ErrUnavailable)},
			maxBytes: 1 << 20,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "clip.wav", pcmWAV([]byte("hello")))
			},
			status: http.StatusInternalServerError,
			msg:    "Speech Recognition API unavailable",
		},
		{
			name:     "too large",
			tr:       &echoTranscriber{},
			maxBytes: 64,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "clip.wav", pcmWAV(bytes.Repeat([]byte("a"), 256)))
			},
			status: http.StatusBadRequest,
			msg:    "Audio file too large",
		},
		{
			name:     "body over request limit",
			tr:       &echoTranscriber{},
			maxBytes: 64,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "clip.wav", pcmWAV(bytes.Repeat([]byte("a"), 256<<10)))
			},
			status: http.StatusBadRequest,
			msg:    "Audio file too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &scriptedGenerator{}, tt.tr, tt.maxBytes)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req(t))

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if got := decodeError(t, w); got != tt.msg {
				t.Errorf("expected error %q, got %q", tt.msg, got)
			}
		})
	}
}

func TestSpeechToText_ConcurrentUploadsStayIsolated(t *testing.T) {
	router := newTestRouter(t, &scriptedGenerator{}, &echoTranscriber{delay: 20 * time.Millisecond}, 1<<20)

	const n = 12
	reqs := make([]*http.Request, n)
	for i := range reqs {
		reqs[i] = uploadRequest(t, "file", "clip.wav", pcmWAV([]byte(fmt.Sprintf("speaker number %02d", i))))
	}

	var wg sync.WaitGroup
	failures := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("speaker number %02d", i)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, reqs[i])

			var resp models.Transcription
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || w.Code != http.StatusOK {
				failures <- fmt.Sprintf("request %d: status %d body %s", i, w.Code, w.Body.String())
				return
			}
			if resp.Text != want {
				failures <- fmt.Sprintf("request %d got %q", i, resp.Text)
			}
		}(i)
	}
	wg.Wait()
	close(failures)

	for f := range failures {
		t.Error(f)
	}
}

func TestEvaluateArgument_Success(t *testing.T) {
	router := newTestRouter(t, &scriptedGenerator{}, &echoTranscriber{}, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, evaluateRequest(`{"topic":"School uniforms","text":"They make everyone equal."}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"rationality_score", "reason_for_score", "feedback", "improved_argument"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, w.Body.String())
		}
	}
	if raw["rationality_score"] != 0.7 {
		t.Errorf("expected score 0.7, got %v", raw["rationality_score"])
	}
	if raw["improved_argument"] != "They make everyone equal." {
		t.Errorf("unexpected improved argument %v", raw["improved_argument"])
	}
}

func TestEvaluateArgument_Placeholders(t *testing.T) {
	gen := &scriptedGenerator{reply: "I think this argument is fine overall."}
	router := newTestRouter(t, gen, &echoTranscriber{}, 1<<20)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, evaluateRequest(`{"topic":"Homework","text":"It is useless."}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var eval models.Evaluation
	if err := json.Unmarshal(w.Body.Bytes(), &eval); err != nil {
		t.Fatal(err)
	}
	if eval.RationalityScore != services.DefaultRationalityScore {
		t.Errorf("expected default score, got %v", eval.RationalityScore)
	}
	if eval.ReasonForScore != services.NoReasoningProvided {
		t.Errorf("unexpected reasoning %q", eval.ReasonForScore)
	}
	if eval.Feedback != services.NoFeedbackProvided {
		t.Errorf("unexpected feedback %q", eval.Feedback)
	}
}

func TestEvaluateArgument_Errors(t *testing.T) {
	tests := []struct {
		name   string
		gen    *scriptedGenerator
		body   string
		status int
		msg    string
	}{
		{"blank topic", &scriptedGenerator{}, `{"topic":"  ","text":"An argument."}`, http.StatusBadRequest, missingInputMsg},
		{"missing text", &scriptedGenerator{}, `{"topic":"Homework"}`, http.StatusBadRequest, missingInputMsg},
		{"malformed json", &scriptedGenerator{}, `{"topic":`, http.StatusBadRequest, missingInputMsg},
		{"blocked", &scriptedGenerator{err: services.ErrContentBlocked}, `{"topic":"t","text":"a"}`, http.StatusBadRequest, contentBlockedMsg},
		{"upstream failure", &scriptedGenerator{err: errors.New("googleapi: Error 429: quota exceeded")}, `{"topic":"t","text":"a"}`, http.StatusInternalServerError, "googleapi: Error 429: quota exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.gen, &echoTranscriber{}, 1<<20)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, evaluateRequest(tt.body))

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if got := decodeError(t, w); got != tt.msg {
				t.Errorf("expected error %q, got %q", tt.msg, got)
			}
		})
	}
}

func TestEvaluateArgument_ConcurrentRequestsStayIsolated(t *testing.T) {
	router := newTestRouter(t, &scriptedGenerator{delay: 10 * time.Millisecond}, &echoTranscriber{}, 1<<20)

	const n = 10
	var wg sync.WaitGroup
	failures := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			argument := fmt.Sprintf("Argument number %d.", i)
			body, _ := json.Marshal(models.EvaluateArgumentRequest{Topic: "Isolation", Text: argument})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, evaluateRequest(string(body)))

			var eval models.Evaluation
			if err := json.Unmarshal(w.Body.Bytes(), &eval); err != nil || w.Code != http.StatusOK {
				failures <- fmt.Sprintf("request %d: status %d body %s", i, w.Code, w.Body.String())
				return
			}
			if eval.ImprovedArgument != argument {
				failures <- fmt.Sprintf("request %d got %q", i, eval.ImprovedArgument)
			}
		}(i)
	}
	wg.Wait()
	close(failures)

	for f := range failures {
		t.Error(f)
	}
}
