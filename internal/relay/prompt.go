package relay

import (
	"fmt"
	"strings"

	"stepone/internal/domain"
	"stepone/internal/persona"
)

const (
	replyMinChars = 180
	replyMaxChars = 280
)

// PromptBuilder renders the fixed instruction template around a request.
type PromptBuilder struct {
	preset persona.Preset
}

func NewPromptBuilder(preset persona.Preset) *PromptBuilder {
	return &PromptBuilder{preset: preset}
}

// Build embeds the user's text, emotion and intent into the instruction
// template. The upstream model is told to answer with JSON only so the relay
// can hand the reply straight back to the front end.
func (b *PromptBuilder) Build(req domain.PlanRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "The user said: %q\n", req.Text)
	fmt.Fprintf(&sb, "Emotional state: %s. Intent: %s.\n", req.Emotion, req.Intent)
	fmt.Fprintf(&sb, "Answer in two warm sentences, %d-%d characters in total.\n", replyMinChars, replyMaxChars)
	fmt.Fprintf(&sb, "Tone: %s. %s\n", b.preset.Tone, b.preset.Guidance)
	sb.WriteString("Respond with JSON only, using exactly the fields message, emotion, tags.\n")
	sb.WriteString("\nExample:\n")
	sb.WriteString(b.preset.Example)
	sb.WriteString("\n")

	return sb.String()
}
