package dom

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/formfill/internal/form"
	"golang.org/x/net/html"
)

// ControlType returns the effective type of an input/textarea/select
func ControlType(n *html.Node) form.FieldType {
	switch Tag(n) {
	case "textarea":
		return form.TypeTextarea
	case "select":
		return form.TypeSelect
	}
	return form.ParseFieldType(Attr(n, "type"))
}

// IsFillable reports whether an element is an input/textarea/select a user
// could type into: not hidden, not a button-like control, and rendered.
func IsFillable(n *html.Node) bool {
	switch Tag(n) {
	case "input", "textarea", "select":
	default:
		return false
	}
	t := ControlType(n)
	if t == form.TypeHidden || t.Structural() {
		return false
	}
	return Rendered(n)
}

// FillableWithin returns every fillable control below root in document order
func FillableWithin(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	var out []*html.Node
	goquery.NewDocumentFromNode(root).Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		if n := s.Get(0); IsFillable(n) {
			out = append(out, n)
		}
	})
	return out
}
