package ai

import (
	"fmt"
	"strconv"

	"github.com/v0xg/formfill/internal/form"
)

const systemPrompt = `You are a helpful assistant that generates realistic test data for form fields. Respond only with the value, no explanations.`

const (
	maxTokens   = 50
	temperature = 0.7
)

// buildFieldPrompt asks for one value shaped by the field's type and label
func buildFieldPrompt(f form.Field) string {
	subject := f.Label
	if subject == "" {
		subject = f.Name
	}
	if subject == "" {
		subject = f.Placeholder
	}

	switch f.Type {
	case form.TypeEmail:
		return fmt.Sprintf("Generate a valid email address that would be appropriate for a field labeled %q in India", subject)
	case form.TypeTel:
		return fmt.Sprintf("Generate a valid phone number that would be appropriate for a field labeled %q in India", subject)
	case form.TypeNumber, form.TypeRange:
		var bounds string
		if f.Validation != nil && f.Validation.Min != nil {
			bounds += "minimum " + strconv.FormatFloat(*f.Validation.Min, 'f', -1, 64) + ", "
		}
		if f.Validation != nil && f.Validation.Max != nil {
			bounds += "maximum " + strconv.FormatFloat(*f.Validation.Max, 'f', -1, 64) + ", "
		}
		return fmt.Sprintf("Generate a number (%scontext: %q)", bounds, subject)
	case form.TypeDate:
		return fmt.Sprintf("Generate a valid date in YYYY-MM-DD format that would be appropriate for a field labeled %q in India", subject)
	case form.TypePassword:
		return "Generate a strong password with mixed case, numbers, and special characters"
	case form.TypeURL:
		return fmt.Sprintf("Generate a valid URL that would be appropriate for a field labeled %q in India", subject)
	case form.TypeTextarea:
		return fmt.Sprintf("Generate a short paragraph of text that would be appropriate for a field labeled %q in India", subject)
	default:
		return fmt.Sprintf("Generate appropriate text for a field labeled %q in India", subject)
	}
}
