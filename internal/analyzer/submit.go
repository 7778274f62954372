package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
	"golang.org/x/net/html"
)

// submitSelectors are tried in order; only the first match of each is checked
var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
	`button`,
	`[role="button"]`,
	`button.submit`,
	`.submit button`,
	`button.submit-button`,
	`button#submit`,
	`button[class*="submit"]`,
	`button[id*="submit"]`,
	`input[class*="submit"]`,
	`input[id*="submit"]`,
}

const broadSubmitSelector = `button, input[type="submit"], [role="button"]`

var (
	verifyWords = []string{"submit", "send", "request"}
	broadWords  = []string{"submit", "send"}
)

// FindSubmit locates the most probable submit control. An empty control is
// returned when nothing qualifies.
func FindSubmit(doc *goquery.Document) form.SubmitControl {
	n, used := verifiedSubmit(doc)
	if n == nil {
		n = broadSubmit(doc)
	}
	if n == nil {
		return form.SubmitControl{}
	}

	selector := used
	if selector == "" {
		if id := dom.Attr(n, "id"); id != "" {
			selector = "#" + id
		}
	}
	return form.SubmitControl{
		Selector: selector,
		XPath:    dom.StructuralPath(n),
		Text:     controlText(n),
	}
}

func verifiedSubmit(doc *goquery.Document) (*html.Node, string) {
	for _, sel := range submitSelectors {
		match := doc.Find(sel).First()
		if match.Length() == 0 {
			continue
		}
		n := match.Get(0)
		hay := []string{
			strings.ToLower(dom.Text(n)),
			strings.ToLower(dom.Attr(n, "value")),
			strings.ToLower(dom.Attr(n, "class")),
			strings.ToLower(dom.Attr(n, "id")),
		}
		if containsAny(hay, verifyWords) {
			return n, sel
		}
	}
	return nil, ""
}

func broadSubmit(doc *goquery.Document) *html.Node {
	for _, n := range doc.Find(broadSubmitSelector).Nodes {
		hay := []string{
			strings.ToLower(dom.Text(n)),
			strings.ToLower(dom.Attr(n, "value")),
			strings.ToLower(dom.Attr(n, "class")),
		}
		if containsAny(hay, broadWords) {
			return n
		}
	}
	return nil
}

func containsAny(hay, words []string) bool {
	for _, h := range hay {
		for _, w := range words {
			if strings.Contains(h, w) {
				return true
			}
		}
	}
	return false
}

func controlText(n *html.Node) string {
	if text := dom.Text(n); text != "" {
		return text
	}
	return strings.TrimSpace(dom.Attr(n, "value"))
}
