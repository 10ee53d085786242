package services

import (
	"regexp"
	"strconv"
	"strings"

	"debatecoach/models"
)

// Placeholders substituted when a section is missing from the model reply.
const (
	DefaultRationalityScore = 0.5
	NoReasoningProvided     = "No reasoning provided."
	NoFeedbackProvided      = "No feedback provided."
	NoImprovedArgument      = "No improved argument provided."
)

const (
	scoreLabel      = "Rationality Score:"
	scoreMarker     = "**Rationality Score:**"
	reasoningMarker = "**Reasoning for Score:**"
	feedbackMarker  = "**Feedback:**"
	improvedMarker  = "**Improved Argument:**"
)

// Every section ends where the next known marker begins.
var sectionMarkers = []string{scoreMarker, reasoningMarker, feedbackMarker, improvedMarker}

var numberPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// ParseEvaluation extracts the structured fields from the coach reply.
// It never fails: missing sections get placeholders, and the names of those
// fields are returned as fallbacks.
func ParseEvaluation(reply string) (models.Evaluation, []string) {
	var fallbacks []string
	reply = strings.TrimSpace(reply)

	score, ok := parseScore(reply)
	if !ok {
		fallbacks = append(fallbacks, "rationality_score")
	}

	reason, ok := section(reply, reasoningMarker)
	if !ok {
		reason = NoReasoningProvided
		fallbacks = append(fallbacks, "reason_for_score")
	}

	feedback, ok := section(reply, feedbackMarker)
	if !ok {
		feedback = NoFeedbackProvided
		fallbacks = append(fallbacks, "feedback")
	}

	improved, ok := section(reply, improvedMarker)
	if !ok {
		improved = NoImprovedArgument
		fallbacks = append(fallbacks, "improved_argument")
	}

	return models.Evaluation{
		RationalityScore: score,
		ReasonForScore:   reason,
		Feedback:         feedback,
		ImprovedArgument: improved,
	}, fallbacks
}

// parseScore reads the first number after the label on the first line that
// carries it. The result is clamped to [0, 1].
func parseScore(reply string) (float64, bool) {
	for _, line := range strings.Split(reply, "\n") {
		idx := strings.Index(line, scoreLabel)
		if idx < 0 {
			continue
		}
		match := numberPattern.FindString(line[idx+len(scoreLabel):])
		if match == "" {
			return DefaultRationalityScore, false
		}
		v, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return DefaultRationalityScore, false
		}
		return clampScore(v), true
	}
	return DefaultRationalityScore, false
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// section returns the text between marker and the next known marker.
func section(reply, marker string) (string, bool) {
	start := strings.Index(reply, marker)
	if start < 0 {
		return "", false
	}
	body := reply[start+len(marker):]

	end := len(body)
	for _, m := range sectionMarkers {
		if m == marker {
			continue
		}
		if i := strings.Index(body, m); i >= 0 && i < end {
			end = i
		}
	}

	content := trimRule(body[:end])
	return content, content != ""
}

// trimRule strips whitespace and trailing "---" separators.
func trimRule(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, "---") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "---"))
	}
	return s
}
