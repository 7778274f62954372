package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/formfill/internal/dom"
)

// DefaultFormName is used when the page offers no usable heading
const DefaultFormName = "Contact Form"

var nameSelectors = []string{
	"form h1", "form h2", "form h3", "form h4",
	".form h1", ".form h2", ".form h3", ".form h4",
	`[class*="form"] h1`, `[class*="form"] h2`, `[class*="form"] h3`, `[class*="form"] h4`,
	"form .title", ".form .title", `[class*="form"] .title`,
}

// DetectName returns the best-effort title of the form, or ""
func DetectName(doc *goquery.Document) string {
	for _, sel := range nameSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}

	// Try to find any heading near the form
	f := doc.Find("form").First()
	if f.Length() == 0 {
		return ""
	}
	body := dom.Body(doc)
	for p := f.Get(0).Parent; p != nil && p != body; p = p.Parent {
		heading := goquery.NewDocumentFromNode(p).Find("h1, h2, h3, h4").First()
		if text := strings.TrimSpace(heading.Text()); text != "" {
			return text
		}
	}
	return ""
}
