package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"debatecoach/internal/coachclient"
	"debatecoach/internal/observability/logging"

	"github.com/joho/godotenv"
)

const blockedHint = "The AI could not answer this argument because of content restrictions. Try rephrasing it."

func main() {
	topic := flag.String("topic", "", "debate topic")
	text := flag.String("text", "", "argument text; taken from the transcript when -audio is set and this is empty")
	audio := flag.String("audio", "", "path to a WAV or FLAC recording of the argument")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	_ = godotenv.Load()
	logger := logging.Init(logging.Config{Level: "info", Format: "console"})

	client := coachclient.New(os.Getenv("BACKEND_URL"), *timeout)
	ctx := context.Background()

	if *audio != "" {
		transcript, err := client.Transcribe(ctx, *audio)
		if err != nil {
			logger.Fatal().Err(err).Str("file", *audio).Msg("Transcription failed")
		}
		fmt.Println("Transcription:")
		fmt.Println(transcript)
		fmt.Println()
		if *text == "" {
			*text = transcript
		}
	}

	if *topic == "" || *text == "" {
		fmt.Fprintln(os.Stderr, "Please provide -topic and either -text or -audio.")
		os.Exit(2)
	}

	eval, err := client.Evaluate(ctx, *topic, *text)
	if err != nil {
		var apiErr *coachclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			fmt.Fprintln(os.Stderr, apiErr.Message)
			fmt.Fprintln(os.Stderr, blockedHint)
			os.Exit(1)
		}
		logger.Fatal().Err(err).Msg("Evaluation failed")
	}

	fmt.Printf("Rationality Score: %.2f\n\n", eval.RationalityScore)
	fmt.Println("Reasoning:")
	fmt.Println(eval.ReasonForScore)
	fmt.Println()
	fmt.Println("Feedback:")
	fmt.Println(eval.Feedback)
	fmt.Println()
	fmt.Println("Improved Argument:")
	fmt.Println(eval.ImprovedArgument)
}
