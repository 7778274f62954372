package analyzer

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/v0xg/formfill/internal/dom"
	"golang.org/x/net/html"
)

// containerSelector matches elements whose class or id suggests a form
const containerSelector = `.form, .contact-form, .contact, .form-container, [class*="form"], [id*="form"], [class*="contact"], [id*="contact"]`

// Tier identifies which strategy located the form container
type Tier int

const (
	TierForm Tier = iota + 1
	TierContainer
	TierInputCluster
)

func (t Tier) String() string {
	switch t {
	case TierForm:
		return "form"
	case TierContainer:
		return "container"
	case TierInputCluster:
		return "input-group"
	}
	return "unknown"
}

// Container is the element believed to hold the form
type Container struct {
	Node      *html.Node
	Tier      Tier
	Inputs    int
	HasSubmit bool
}

type locateTier struct {
	tier   Tier
	locate func(doc *goquery.Document) *html.Node
}

// Evaluated in order, first hit wins
var locateTiers = []locateTier{
	{TierForm, locateExplicitForm},
	{TierContainer, locateClassContainer},
	{TierInputCluster, locateInputCluster},
}

// LocateForm finds the most probable form container in the snapshot
func LocateForm(doc *goquery.Document) (*Container, error) {
	for _, t := range locateTiers {
		n := t.locate(doc)
		if n == nil {
			continue
		}
		submitSel := `button, input[type="submit"], [class*="submit"], [id*="submit"]`
		if t.tier == TierForm {
			submitSel = `button[type="submit"], input[type="submit"]`
		}
		return &Container{
			Node:      n,
			Tier:      t.tier,
			Inputs:    len(dom.FillableWithin(n)),
			HasSubmit: goquery.NewDocumentFromNode(n).Find(submitSel).Length() > 0,
		}, nil
	}
	return nil, ErrNoFormFound
}

// locateExplicitForm prefers the first <form> holding a fillable input and
// falls back to the first <form> at all.
func locateExplicitForm(doc *goquery.Document) *html.Node {
	forms := doc.Find("form")
	if forms.Length() == 0 {
		return nil
	}
	for _, n := range forms.Nodes {
		if len(dom.FillableWithin(n)) > 0 {
			return n
		}
	}
	return forms.Get(0)
}

func locateClassContainer(doc *goquery.Document) *html.Node {
	for _, n := range doc.Find(containerSelector).Nodes {
		if len(dom.FillableWithin(n)) > 0 {
			return n
		}
	}
	return nil
}

// locateInputCluster treats the lowest common ancestor of every fillable
// input on the page as the form.
func locateInputCluster(doc *goquery.Document) *html.Node {
	inputs := dom.FillableWithin(dom.Body(doc))
	if len(inputs) == 0 {
		return nil
	}
	return lowestCommonAncestor(inputs)
}

func lowestCommonAncestor(nodes []*html.Node) *html.Node {
	acc := nodes[0].Parent
	for _, n := range nodes[1:] {
		acc = commonAncestor(acc, n.Parent)
		if acc == nil {
			return nil
		}
	}
	return acc
}

func commonAncestor(a, b *html.Node) *html.Node {
	seen := make(map[*html.Node]bool)
	for p := a; p != nil; p = p.Parent {
		seen[p] = true
	}
	for p := b; p != nil; p = p.Parent {
		if seen[p] {
			return p
		}
	}
	return nil
}
