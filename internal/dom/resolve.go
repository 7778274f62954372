package dom

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Resolve finds the first node matching a CSS or XPath locator in the
// snapshot. Invalid locators resolve to nil.
func Resolve(doc *goquery.Document, locator string) *html.Node {
	if doc == nil || locator == "" {
		return nil
	}
	if IsXPath(locator) {
		n, err := htmlquery.Query(doc.Get(0), locator)
		if err != nil || n == nil || n.Type != html.ElementNode {
			return nil
		}
		return n
	}
	sel := doc.Find(locator)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}
