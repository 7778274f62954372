// Package ai supplies field values for a fill, either from an LLM or from
// local pools of realistic sample data.
package ai

import (
	"context"
	"fmt"

	"github.com/v0xg/formfill/internal/form"
)

// Provider generates a value for a single field
type Provider interface {
	GenerateValue(ctx context.Context, field form.Field) (string, error)
}

// NewProvider creates a new provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	case "local", "":
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai, local)", name)
	}
}
