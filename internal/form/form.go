package form

import (
	"strings"
	"time"
)

// FieldType is the semantic type of a discovered field
type FieldType string

const (
	TypeText          FieldType = "text"
	TypeNumber        FieldType = "number"
	TypeEmail         FieldType = "email"
	TypePassword      FieldType = "password"
	TypeCheckbox      FieldType = "checkbox"
	TypeRadio         FieldType = "radio"
	TypeSelect        FieldType = "select"
	TypeTextarea      FieldType = "textarea"
	TypeTel           FieldType = "tel"
	TypeURL           FieldType = "url"
	TypeDate          FieldType = "date"
	TypeDateTimeLocal FieldType = "datetime-local"
	TypeTime          FieldType = "time"
	TypeWeek          FieldType = "week"
	TypeMonth         FieldType = "month"
	TypeColor         FieldType = "color"
	TypeFile          FieldType = "file"
	TypeHidden        FieldType = "hidden"
	TypeRange         FieldType = "range"
	TypeSearch        FieldType = "search"

	// Structural types. Never emitted as fillable fields.
	TypeSubmit FieldType = "submit"
	TypeReset  FieldType = "reset"
	TypeImage  FieldType = "image"
	TypeButton FieldType = "button"
)

var knownTypes = map[FieldType]bool{
	TypeText: true, TypeNumber: true, TypeEmail: true, TypePassword: true,
	TypeCheckbox: true, TypeRadio: true, TypeSelect: true, TypeTextarea: true,
	TypeTel: true, TypeURL: true, TypeDate: true, TypeDateTimeLocal: true,
	TypeTime: true, TypeWeek: true, TypeMonth: true, TypeColor: true,
	TypeFile: true, TypeHidden: true, TypeRange: true, TypeSearch: true,
	TypeSubmit: true, TypeReset: true, TypeImage: true, TypeButton: true,
}

// ParseFieldType normalizes a native type attribute. Unknown or empty values
// become text, which is what browsers report for them.
func ParseFieldType(s string) FieldType {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	if knownTypes[t] {
		return t
	}
	return TypeText
}

// Structural reports whether the type is a button-like control
func (t FieldType) Structural() bool {
	switch t {
	case TypeSubmit, TypeReset, TypeImage, TypeButton:
		return true
	}
	return false
}

// Validation holds constraints captured from element attributes
type Validation struct {
	Required  bool     `json:"required,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// Empty reports whether no constraint was captured
func (v *Validation) Empty() bool {
	return v == nil || (!v.Required && v.MinLength == nil && v.MaxLength == nil &&
		v.Min == nil && v.Max == nil && v.Pattern == "")
}

// Field describes one discovered input
type Field struct {
	Name        string      `json:"name"`
	Label       string      `json:"label,omitempty"`
	Type        FieldType   `json:"type"`
	Placeholder string      `json:"placeholder,omitempty"`
	Required    bool        `json:"required"`
	Options     []string    `json:"options,omitempty"`
	Validation  *Validation `json:"validation,omitempty"`
	Selector    string      `json:"selector,omitempty"`
	XPath       string      `json:"xpath"`
}

// Unfillable reports whether the field must never be auto-filled
// (file uploads and captchas need a human).
func (f Field) Unfillable() bool {
	return f.Type == TypeFile || strings.Contains(strings.ToLower(f.Name), "captcha")
}

// SubmitControl locates the control that submits the form
type SubmitControl struct {
	Selector string `json:"selector"`
	XPath    string `json:"xpath"`
	Text     string `json:"text,omitempty"`
}

// Found reports whether discovery located a submit control
func (s SubmitControl) Found() bool {
	return s.Selector != "" || s.XPath != ""
}

// Form is the persisted structural model of a discovered form
type Form struct {
	ID           string        `json:"_id,omitempty"`
	URL          string        `json:"url"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Fields       []Field       `json:"fields"`
	SubmitButton SubmitControl `json:"submitButton"`
	Created      time.Time     `json:"created"`
	Updated      time.Time     `json:"updated"`
}

// Status is the outcome of a submission attempt
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Submission records one fill attempt
type Submission struct {
	ID        string            `json:"_id,omitempty"`
	FormID    string            `json:"formId"`
	Values    map[string]string `json:"values"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewSubmission builds a record for a fill attempt. A non-nil err marks it
// as failed and captures the message.
func NewSubmission(formID string, values map[string]string, err error, at time.Time) Submission {
	s := Submission{
		FormID:    formID,
		Values:    values,
		Status:    StatusSuccess,
		Timestamp: at,
	}
	if err != nil {
		s.Status = StatusError
		s.Error = err.Error()
	}
	return s
}
