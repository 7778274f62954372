package executor

import (
	"context"

	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
	"go.uber.org/zap"
)

type locatorSource struct {
	name  string
	build func(f form.Field) string
}

func byAttr(tag, attr, op string) func(form.Field) string {
	return func(f form.Field) string {
		if f.Name == "" {
			return ""
		}
		return dom.AttrSelector(tag, attr, op, f.Name)
	}
}

// locatorChain lists the ways a stored field is looked up again, most
// specific first
var locatorChain = []locatorSource{
	{"selector", func(f form.Field) string { return f.Selector }},
	{"name", byAttr("", "name", "=")},
	{"id", byAttr("", "id", "=")},
	{"xpath", func(f form.Field) string { return f.XPath }},
	{"input-name", byAttr("input", "name", "=")},
	{"textarea-name", byAttr("textarea", "name", "=")},
	{"select-name", byAttr("select", "name", "=")},
	{"placeholder", byAttr("", "placeholder", "*=")},
	{"aria-label", byAttr("", "aria-label", "*=")},
}

// Locators returns the candidate locators for a field in the order they are
// tried. Empty and repeated candidates are dropped.
func Locators(f form.Field) []string {
	seen := make(map[string]bool, len(locatorChain))
	var out []string
	for _, src := range locatorChain {
		loc := src.build(f)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		out = append(out, loc)
	}
	return out
}

// resolveField returns the first live element matched by the field's locator
// chain. A nil element with a nil error means nothing matched.
func (f *Filler) resolveField(ctx context.Context, page crawler.Page, field form.Field) (crawler.Element, string, error) {
	for _, loc := range Locators(field) {
		el, ok, err := page.Find(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			f.log.Debug("locator failed", zap.String("field", field.Name), zap.String("locator", loc), zap.Error(err))
			continue
		}
		if ok {
			return el, loc, nil
		}
	}
	return nil, "", nil
}
