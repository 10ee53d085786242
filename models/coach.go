package models

// EvaluateArgumentRequest is the payload sent by the client to evaluate an argument
type EvaluateArgumentRequest struct {
	Topic string `json:"topic"`
	Text  string `json:"text"`
}

// Evaluation is the structured result parsed from the model's reply
type Evaluation struct {
	RationalityScore float64 `json:"rationality_score"`
	ReasonForScore   string  `json:"reason_for_score"`
	Feedback         string  `json:"feedback"`
	ImprovedArgument string  `json:"improved_argument"`
}

// Transcription is the response of the speech-to-text endpoint
type Transcription struct {
	Text string `json:"transcription"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
