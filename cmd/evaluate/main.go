package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"debatecoach/config"
	"debatecoach/internal/observability/logging"
	"debatecoach/services"

	"github.com/joho/godotenv"
)

const (
	sampleTopic    = "Should school uniforms be mandatory?"
	sampleArgument = "Uniforms make everyone equal. Kids stop judging each other by clothes, and parents save money because they do not have to buy the latest brands every season."
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to an optional YAML config file")
	topic := flag.String("topic", sampleTopic, "debate topic")
	text := flag.String("text", sampleArgument, "argument to evaluate")
	showPrompt := flag.Bool("prompt", false, "print the prompt sent to the model")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})
	if cfg.Gemini.ApiKey == "" {
		panic("GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	gen, err := services.NewGeminiGenerator(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model, cfg.Gemini.Temperature)
	if err != nil {
		panic("failed to create gemini client: " + err.Error())
	}
	defer gen.Close()
	services.InitCoachService(gen, cfg.Gemini.Timeout)

	if *showPrompt {
		fmt.Println(services.BuildCoachPrompt(*topic, *text))
		fmt.Println()
	}

	evaluation, err := services.EvaluateArgument(ctx, "cli", *topic, *text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Evaluation failed:", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(evaluation, "", "  ")
	fmt.Println("Evaluation Result:")
	fmt.Println(string(out))
}
