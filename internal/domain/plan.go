package domain

import "time"

// PlanRequest is the payload the front end posts to /api/plan.
// All fields are free-form strings supplied by the user.
type PlanRequest struct {
	Text    string `json:"text"`
	Emotion string `json:"emotion"`
	Intent  string `json:"intent"`
}

// PlanResponse is what the caller always receives: the coaching reply parsed
// from the upstream model, or one of the fixed fallback payloads.
type PlanResponse struct {
	Message string   `json:"message"`
	Emotion string   `json:"emotion"`
	Tags    []string `json:"tags"`
}

// Outcome labels for a handled plan exchange.
const (
	OutcomeOK         = "ok"
	OutcomeFallback   = "fallback"
	OutcomeMissingKey = "missing_key"
)

// PlanRecord is one logged exchange in the history store.
type PlanRecord struct {
	ID           int64     `json:"id"`
	Text         string    `json:"text"`
	Emotion      string    `json:"emotion"`
	Intent       string    `json:"intent"`
	Message      string    `json:"message"`
	ReplyEmotion string    `json:"replyEmotion"`
	Tags         string    `json:"tags"` // JSON-encoded list
	Outcome      string    `json:"outcome"`
	LatencyMs    int64     `json:"latencyMs"`
	CreatedAt    time.Time `json:"createdAt"`
}
