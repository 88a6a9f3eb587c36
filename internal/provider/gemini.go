package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"

	// One bounded attempt per call, no retry.
	defaultHTTPTimeout = 10 * time.Second

	maxErrorBodyBytes = 4 << 10
)

// ErrEmptyReply is returned when the response parses but carries no
// candidate text to extract.
var ErrEmptyReply = errors.New("gemini: response contains no candidate text")

// StatusError is a non-2xx reply from the generation endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini returned %d: %s", e.Code, e.Body)
}

// Gemini implements domain.Generator against the generateContent REST API.
type Gemini struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type GeminiConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  NewHTTPClient(cfg.Timeout),
		logger:  cfg.Logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

// Wire envelopes for generateContent. Only the text path the relay needs is
// mapped; everything else the API returns is ignored.
type gcRequest struct {
	Contents []gcContent `json:"contents"`
}

type gcContent struct {
	Parts []gcPart `json:"parts"`
}

type gcPart struct {
	Text string `json:"text"`
}

type gcResponse struct {
	Candidates []gcCandidate `json:"candidates"`
}

type gcCandidate struct {
	Content gcContent `json:"content"`
}

// Generate sends one prompt and returns the first candidate's first part.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	body := gcRequest{
		Contents: []gcContent{{Parts: []gcPart{{Text: prompt}}}},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.apiBase, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-goog-api-key", g.apiKey)

	g.logger.Debug("gemini request", "model", g.model, "prompt_len", len(prompt))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var gcResp gcResponse
	if err := json.NewDecoder(resp.Body).Decode(&gcResp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if len(gcResp.Candidates) == 0 || len(gcResp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}
	return gcResp.Candidates[0].Content.Parts[0].Text, nil
}

// Healthy probes the models listing endpoint with the configured key.
// Used by the status and doctor commands, never by the relay path.
func (g *Gemini) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", g.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-goog-api-key", g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("gemini: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini returned %d", resp.StatusCode)
	}
	return nil
}
