// Package relay implements the plan relay: one inbound request becomes one
// templated prompt, one bounded upstream call, and one JSON reply. Every
// failure is absorbed into a fixed fallback payload; the caller never sees
// an error.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stepone/internal/domain"
	"stepone/internal/metrics"
	"stepone/internal/provider"
)

// upstreamTimeout bounds the single outbound call, regardless of input.
const upstreamTimeout = 10 * time.Second

const (
	missingKeyMessage  = "🌿 The coach isn't set up yet — the server has no GEMINI_API_KEY configured."
	unavailableMessage = "🌿 The coach is quiet for a moment. Please try again shortly."
)

// Failure kinds, used for logging only; they all map to the same fallback.
const (
	kindRequest = "request"
	kindStatus  = "status"
	kindShape   = "shape"
	kindParse   = "parse"
)

var errBadPayload = errors.New("upstream text is not valid JSON")

// Relay mediates between a channel and the generation service.
type Relay struct {
	apiKey  string
	gen     domain.Generator
	prompts *PromptBuilder
	store   domain.PlanStore
	logger  *slog.Logger
}

type Config struct {
	APIKey    string
	Generator domain.Generator
	Prompts   *PromptBuilder
	Store     domain.PlanStore // optional
	Logger    *slog.Logger
}

func New(cfg Config) *Relay {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Relay{
		apiKey:  cfg.APIKey,
		gen:     cfg.Generator,
		prompts: cfg.Prompts,
		store:   cfg.Store,
		logger:  cfg.Logger,
	}
}

// Handle turns a request into a response. It never fails outward: a missing
// key or any upstream failure yields the corresponding fixed payload.
func (r *Relay) Handle(ctx context.Context, req domain.PlanRequest) domain.PlanResponse {
	if r.apiKey == "" {
		r.logger.Warn("no API key configured, answering without upstream call")
		resp := domain.PlanResponse{
			Message: missingKeyMessage,
			Emotion: "healing",
			Tags:    []string{"error"},
		}
		r.observe(ctx, req, resp, domain.OutcomeMissingKey, 0)
		return resp
	}

	prompt := r.prompts.Build(req)
	r.logger.Info("requesting plan",
		"provider", r.gen.Name(),
		"emotion", req.Emotion,
		"intent", req.Intent,
		"text_len", len(req.Text),
	)

	callCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	start := time.Now()
	resp, err := r.callUpstream(callCtx, prompt)
	elapsed := time.Since(start)
	metrics.UpstreamLatency.Observe(elapsed.Seconds())

	if err != nil {
		r.logger.Warn("upstream call failed, serving fallback",
			"kind", errKind(err), "elapsed", elapsed, "err", err)
		out := domain.PlanResponse{
			Message: unavailableMessage,
			Emotion: "healing",
			Tags:    []string{"fallback"},
		}
		r.observe(ctx, req, out, domain.OutcomeFallback, elapsed)
		return out
	}

	r.observe(ctx, req, *resp, domain.OutcomeOK, elapsed)
	return *resp
}

// callUpstream performs the single generation attempt and parses the reply.
func (r *Relay) callUpstream(ctx context.Context, prompt string) (*domain.PlanResponse, error) {
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("upstream reply", "raw", text)

	clean := StripCodeFence(text)
	var resp domain.PlanResponse
	if err := json.Unmarshal([]byte(clean), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return &resp, nil
}

func errKind(err error) string {
	var se *provider.StatusError
	switch {
	case errors.As(err, &se):
		return kindStatus
	case errors.Is(err, provider.ErrEmptyReply):
		return kindShape
	case errors.Is(err, errBadPayload):
		return kindParse
	default:
		return kindRequest
	}
}

// observe counts the outcome and, when a store is wired, appends the
// exchange to the history log. Neither may affect the reply.
func (r *Relay) observe(ctx context.Context, req domain.PlanRequest, resp domain.PlanResponse, outcome string, elapsed time.Duration) {
	metrics.PlanRequests(outcome).Inc()

	if r.store == nil {
		return
	}
	tags, _ := json.Marshal(resp.Tags)
	rec := domain.PlanRecord{
		Text:         req.Text,
		Emotion:      req.Emotion,
		Intent:       req.Intent,
		Message:      resp.Message,
		ReplyEmotion: resp.Emotion,
		Tags:         string(tags),
		Outcome:      outcome,
		LatencyMs:    elapsed.Milliseconds(),
		CreatedAt:    time.Now(),
	}
	if err := r.store.Record(ctx, rec); err != nil {
		r.logger.Warn("cannot record exchange", "err", err)
	}
}
