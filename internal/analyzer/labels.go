package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/formfill/internal/dom"
	"golang.org/x/net/html"
)

const untitledLabel = "Untitled Field"

type labelSource struct {
	name    string
	resolve func(doc *goquery.Document, n *html.Node) string
}

// labelChain is tried top to bottom; the first non-empty result wins
var labelChain = []labelSource{
	{"aria-label", labelFromAriaLabel},
	{"aria-labelledby", labelFromAriaLabelledBy},
	{"label-for", labelFromForAttr},
	{"ancestor-label", labelFromAncestors},
	{"placeholder", attrLabel("placeholder")},
	{"name", attrLabel("name")},
	{"id", attrLabel("id")},
}

func resolveLabel(doc *goquery.Document, n *html.Node) string {
	for _, src := range labelChain {
		if label := src.resolve(doc, n); label != "" {
			return label
		}
	}
	return untitledLabel
}

func labelFromAriaLabel(_ *goquery.Document, n *html.Node) string {
	return strings.TrimSpace(dom.Attr(n, "aria-label"))
}

func labelFromAriaLabelledBy(doc *goquery.Document, n *html.Node) string {
	var parts []string
	for _, id := range strings.Fields(dom.Attr(n, "aria-labelledby")) {
		target := doc.Find(dom.AttrSelector("", "id", "=", id)).First()
		if text := strings.TrimSpace(target.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func labelFromForAttr(doc *goquery.Document, n *html.Node) string {
	id := dom.Attr(n, "id")
	if id == "" {
		return ""
	}
	return strings.TrimSpace(doc.Find(dom.AttrSelector("label", "for", "=", id)).First().Text())
}

// labelFromAncestors looks at the first label under each ancestor, stopping
// at the enclosing form.
func labelFromAncestors(_ *goquery.Document, n *html.Node) string {
	for p := n.Parent; p != nil && p.Type == html.ElementNode && dom.Tag(p) != "form"; p = p.Parent {
		label := goquery.NewDocumentFromNode(p).Find("label").First()
		if text := strings.TrimSpace(label.Text()); text != "" {
			return text
		}
	}
	return ""
}

func attrLabel(attr string) func(*goquery.Document, *html.Node) string {
	return func(_ *goquery.Document, n *html.Node) string {
		return dom.Attr(n, attr)
	}
}

// slugify lowercases s and collapses runs of non-alphanumerics into "_"
func slugify(s string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			gap = false
			continue
		}
		if !gap {
			b.WriteByte('_')
			gap = true
		}
	}
	return b.String()
}
