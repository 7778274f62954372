package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// StructuralPath builds an absolute XPath for a node by walking to the
// document root. Elements with an id get an [@id='…'] predicate, the rest a
// 1-based index among preceding siblings with the same tag name.
func StructuralPath(n *html.Node) string {
	if n == nil {
		return ""
	}

	var segs []string
	for el := n; el != nil && el.Type != html.DocumentNode; el = el.Parent {
		if el.Type != html.ElementNode {
			continue
		}
		tag := Tag(el)
		if id := Attr(el, "id"); id != "" {
			segs = append(segs, fmt.Sprintf("%s[@id=%s]", tag, xpathLiteral(id)))
			continue
		}
		index := 1
		for prev := el.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && Tag(prev) == tag {
				index++
			}
		}
		segs = append(segs, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(segs) == 0 {
		return ""
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return "/" + strings.Join(segs, "/")
}

// CSSLocator returns #id, else [name="…"], else ""
func CSSLocator(n *html.Node) string {
	if id := Attr(n, "id"); id != "" {
		return "#" + id
	}
	if name := Attr(n, "name"); name != "" {
		return AttrSelector("", "name", "=", name)
	}
	return ""
}

// AttrSelector builds tag[attr op "value"] with the value quoted
func AttrSelector(tag, attr, op, value string) string {
	return fmt.Sprintf(`%s[%s%s"%s"]`, tag, attr, op, escapeCSSString(value))
}

func escapeCSSString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// xpathLiteral quotes s for use inside an XPath predicate
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// IsXPath reports whether a locator is an XPath expression rather than CSS
func IsXPath(locator string) bool {
	return strings.HasPrefix(locator, "/") || strings.HasPrefix(locator, "(")
}
