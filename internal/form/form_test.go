package form

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFieldType(t *testing.T) {
	assert.Equal(t, TypeEmail, ParseFieldType("EMAIL"))
	assert.Equal(t, TypeDateTimeLocal, ParseFieldType("datetime-local"))
	assert.Equal(t, TypeText, ParseFieldType(""))
	assert.Equal(t, TypeText, ParseFieldType("fancy-widget"))
}

func TestFieldUnfillable(t *testing.T) {
	assert.True(t, Field{Name: "resume", Type: TypeFile}.Unfillable())
	assert.True(t, Field{Name: "g-reCAPTCHA-response", Type: TypeText}.Unfillable())
	assert.False(t, Field{Name: "email", Type: TypeEmail}.Unfillable())
}

func TestSubmitControlFound(t *testing.T) {
	assert.False(t, SubmitControl{}.Found())
	assert.True(t, SubmitControl{XPath: "/html[1]/body[1]/button[1]"}.Found())
}

func TestValidationEmpty(t *testing.T) {
	var nilValidation *Validation
	assert.True(t, nilValidation.Empty())
	assert.True(t, (&Validation{}).Empty())

	max := 10
	assert.False(t, (&Validation{MaxLength: &max}).Empty())
}

func TestNewSubmission(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ok := NewSubmission("f1", map[string]string{"email": "a@b.c"}, nil, at)
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Empty(t, ok.Error)

	failed := NewSubmission("f1", nil, errors.New("navigation failed"), at)
	assert.Equal(t, StatusError, failed.Status)
	assert.Equal(t, "navigation failed", failed.Error)
	assert.Equal(t, at, failed.Timestamp)
}
