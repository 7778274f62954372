package analyzer

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
	"golang.org/x/net/html"
)

// Candidates are collected kind by kind inside each scope
var candidateKinds = []string{"input", "textarea", "select"}

type sniffRule struct {
	match func(name string, t form.FieldType) bool
	to    form.FieldType
}

// sniffRules run in order and each may override the type set before it.
// Matching is substring containment on the resolved name.
var sniffRules = []sniffRule{
	{func(name string, t form.FieldType) bool {
		return strings.Contains(name, "email") || t == form.TypeEmail
	}, form.TypeEmail},
	{nameContains("phone", "mobile"), form.TypeTel},
	{nameContains("message", "comment"), form.TypeTextarea},
}

func nameContains(words ...string) func(string, form.FieldType) bool {
	return func(name string, _ form.FieldType) bool {
		for _, w := range words {
			if strings.Contains(name, w) {
				return true
			}
		}
		return false
	}
}

func sniffType(name string, native form.FieldType) form.FieldType {
	t := native
	for _, r := range sniffRules {
		if r.match(name, t) {
			t = r.to
		}
	}
	return t
}

// extractionScopes picks where to look for fields: every <form>, else every
// form-like container, else the body. This is decided independently of
// LocateForm, so both can disagree on a page.
func extractionScopes(doc *goquery.Document) []*html.Node {
	if forms := doc.Find("form"); forms.Length() > 0 {
		return forms.Nodes
	}
	if containers := doc.Find(containerSelector); containers.Length() > 0 {
		return containers.Nodes
	}
	return []*html.Node{dom.Body(doc)}
}

// ExtractFields describes every fillable control, scope by scope and kind by
// kind. Overlapping scopes report the same element more than once.
func ExtractFields(doc *goquery.Document) []form.Field {
	fields := []form.Field{}
	for _, scope := range extractionScopes(doc) {
		within := goquery.NewDocumentFromNode(scope)
		for _, kind := range candidateKinds {
			within.Find(kind).Each(func(_ int, s *goquery.Selection) {
				n := s.Get(0)
				if !dom.IsFillable(n) {
					return
				}
				fields = append(fields, describeField(doc, n))
			})
		}
	}
	return fields
}

func describeField(doc *goquery.Document, n *html.Node) form.Field {
	label := resolveLabel(doc, n)

	name := dom.Attr(n, "name")
	if name == "" {
		name = dom.Attr(n, "id")
	}
	if name == "" {
		name = slugify(label)
	}

	f := form.Field{
		Name:        name,
		Label:       label,
		Type:        sniffType(name, dom.ControlType(n)),
		Placeholder: dom.Attr(n, "placeholder"),
		Required:    dom.HasAttr(n, "required"),
		Validation:  validationOf(n),
		Selector:    dom.CSSLocator(n),
		XPath:       dom.StructuralPath(n),
	}

	switch f.Type {
	case form.TypeSelect:
		f.Options = selectOptions(n)
	case form.TypeRadio:
		f.Options = radioOptions(doc, n)
	}
	return f
}

// selectOptions lists option texts, leaving out disabled entries and
// placeholders with an explicit empty value
func selectOptions(n *html.Node) []string {
	var opts []string
	goquery.NewDocumentFromNode(n).Find("option").Each(func(_ int, s *goquery.Selection) {
		o := s.Get(0)
		if dom.HasAttr(o, "disabled") {
			return
		}
		if v, ok := s.Attr("value"); ok && strings.TrimSpace(v) == "" {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			opts = append(opts, text)
		}
	})
	return opts
}

// radioOptions lists the values of every radio sharing the element's name
func radioOptions(doc *goquery.Document, n *html.Node) []string {
	name := dom.Attr(n, "name")
	if name == "" {
		if v := dom.Attr(n, "value"); v != "" {
			return []string{v}
		}
		return nil
	}
	var opts []string
	doc.Find(dom.AttrSelector(`input[type="radio"]`, "name", "=", name)).Each(func(_ int, s *goquery.Selection) {
		if v := s.AttrOr("value", ""); v != "" {
			opts = append(opts, v)
		}
	})
	return opts
}

func validationOf(n *html.Node) *form.Validation {
	v := &form.Validation{
		Required:  dom.HasAttr(n, "required"),
		MinLength: intAttr(n, "minlength"),
		MaxLength: intAttr(n, "maxlength"),
		Min:       floatAttr(n, "min"),
		Max:       floatAttr(n, "max"),
		Pattern:   dom.Attr(n, "pattern"),
	}
	if v.Empty() {
		return nil
	}
	return v
}

func intAttr(n *html.Node, name string) *int {
	i, err := strconv.Atoi(strings.TrimSpace(dom.Attr(n, name)))
	if err != nil {
		return nil
	}
	return &i
}

func floatAttr(n *html.Node, name string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(dom.Attr(n, name)), 64)
	if err != nil {
		return nil
	}
	return &f
}
