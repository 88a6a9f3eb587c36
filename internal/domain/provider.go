package domain

import "context"

// Generator is the upstream text-generation dependency of the relay.
// Generate sends one prompt and returns the raw generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
	Healthy(ctx context.Context) error
}
