package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"debatecoach/internal/events"
	"debatecoach/internal/observability/logging"
	"debatecoach/internal/observability/metrics"
	"debatecoach/models"
)

// ErrMissingInput is returned when the topic or the argument is blank.
var ErrMissingInput = errors.New("no text or topic provided")

var (
	generator    TextGenerator
	coachTimeout time.Duration
)

// InitCoachService sets the model used for evaluations. timeout <= 0 means
// the call is bounded only by the request context.
func InitCoachService(gen TextGenerator, timeout time.Duration) {
	generator = gen
	coachTimeout = timeout
}

// BuildCoachPrompt renders the fixed coach instruction for one argument.
func BuildCoachPrompt(topic, argument string) string {
	return fmt.Sprintf(
		`You are an AI debate coach. The topic of the debate is: "%s". The user's argument is: %s

Evaluate the argument and provide:
- A **Rationality Score** between 0 (highly emotional) and 1 (highly rational), with a brief explanation of the score.
- **Feedback** on the argument covering:
    - Logical Structure
    - Clarity & Coherence
    - Supporting Evidence
    - Potential Counterarguments (include at least one concrete counterpoint)
- An **Improved Argument** that incorporates the feedback and strengthens the original argument.

Please format your response like this:
---
**Rationality Score:** X.X
**Reasoning for Score:** [Your explanation]

**Feedback:**
[Your consolidated feedback covering all criteria]

**Improved Argument:**
[The improved version of the argument]`,
		topic, argument,
	)
}

// EvaluateArgument asks the model to assess the argument and parses its
// reply. ErrContentBlocked means there was nothing to parse; any other model
// error is returned as is.
func EvaluateArgument(ctx context.Context, requestID, topic, argument string) (models.Evaluation, error) {
	topic = strings.TrimSpace(topic)
	argument = strings.TrimSpace(argument)
	if topic == "" || argument == "" {
		return models.Evaluation{}, ErrMissingInput
	}
	if generator == nil {
		return models.Evaluation{}, errors.New("Gemini client not initialized")
	}

	logger := logging.WithRequest("coach", requestID)
	m := metrics.DefaultMetrics

	if coachTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, coachTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := generator.Generate(ctx, BuildCoachPrompt(topic, argument))
	elapsed := time.Since(start)
	if err != nil {
		kind := "error"
		outcome := "failed"
		if errors.Is(err, ErrContentBlocked) {
			kind, outcome = "blocked", "blocked"
		}
		m.RecordUpstream("gemini", elapsed.Seconds(), kind)
		m.RecordEvaluation(outcome)
		logger.Warn().Err(err).Dur("latency", elapsed).Msg("Model call failed")
		return models.Evaluation{}, err
	}
	m.RecordUpstream("gemini", elapsed.Seconds(), "")

	evaluation, fallbacks := ParseEvaluation(reply)
	for _, field := range fallbacks {
		m.RecordParseFallback(field)
	}
	m.RecordScore(evaluation.RationalityScore)
	m.RecordEvaluation("ok")

	logger.Info().
		Float64("rationalityScore", evaluation.RationalityScore).
		Strs("fallbacks", fallbacks).
		Dur("latency", elapsed).
		Msg("Argument evaluated")

	publishEvent(ctx, logger, events.TypeEvaluationCompleted, requestID, events.EvaluationPayload{
		Topic:            topic,
		RationalityScore: evaluation.RationalityScore,
	})
	return evaluation, nil
}
