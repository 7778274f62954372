// Package dom holds the host-side view of a page: a parsed snapshot of the
// live document plus the locator helpers shared by discovery and fill.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HiddenMarkAttr is set by the browser side on every control that has no
// layout box at snapshot time (offsetParent === null).
const HiddenMarkAttr = "data-formfill-hidden"

// Parse builds a document from serialized page HTML
func Parse(source string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return doc, nil
}

// Attr returns an attribute value or ""
func Attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present, even when empty
func HasAttr(n *html.Node, name string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

// Tag returns the lowercase tag name of an element node
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Text returns the trimmed text content of a node
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(goquery.NewDocumentFromNode(n).Text())
}

// Rendered reports whether the element takes part in layout. The browser
// mark is authoritative; the hidden attribute and inline display:none on the
// element or an ancestor cover snapshots taken without marks.
func Rendered(n *html.Node) bool {
	if HasAttr(n, HiddenMarkAttr) {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if HasAttr(p, "hidden") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(Attr(p, "style")), " ", "")
		if strings.Contains(style, "display:none") {
			return false
		}
	}
	return true
}

// Contains reports whether ancestor is n or one of its ancestors
func Contains(ancestor, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Body returns the body element of the document
func Body(doc *goquery.Document) *html.Node {
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body.Get(0)
	}
	return doc.Get(0)
}
