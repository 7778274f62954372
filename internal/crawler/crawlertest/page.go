// Package crawlertest provides a snapshot-backed fake of crawler.Page so the
// discovery and fill heuristics can run against HTML fixtures.
package crawlertest

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/dom"
)

// Event is one recorded interaction
type Event struct {
	Action  string // navigate, scroll, clear, type, select, click, eval, close
	Locator string // locator the element was found with
	Value   string
}

// Page serves Find and Snapshot from an HTML document
type Page struct {
	mu sync.Mutex

	html   string
	events []Event
	closed bool

	NavigateErr error
	ClickErr    error
	// OnClick runs after a successful click, e.g. to swap the document
	OnClick func(p *Page, locator string)
}

var _ crawler.Page = (*Page)(nil)

// New returns a page showing html
func New(html string) *Page {
	return &Page{html: html}
}

// SetHTML replaces the current document
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// Events returns a copy of the recorded interactions
func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// EventsFor returns the recorded interactions with the given action
func (p *Page) EventsFor(action string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Closed reports whether Close was called
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) record(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.record(Event{Action: "navigate", Value: url})
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	return ctx.Err()
}

func (p *Page) WaitIdle(ctx context.Context) error {
	return ctx.Err()
}

func (p *Page) Snapshot(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, ctx.Err()
}

func (p *Page) Find(ctx context.Context, locator string) (crawler.Element, bool, error) {
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()

	doc, err := dom.Parse(html)
	if err != nil {
		return nil, false, err
	}
	if dom.Resolve(doc, locator) == nil {
		return nil, false, nil
	}
	return &element{page: p, locator: locator}, true, nil
}

func (p *Page) Eval(ctx context.Context, js string) error {
	p.record(Event{Action: "eval", Value: js})
	return nil
}

func (p *Page) WaitSettle(ctx context.Context) func() error {
	return func() error { return ctx.Err() }
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.events = append(p.events, Event{Action: "close"})
	return nil
}

type element struct {
	page    *Page
	locator string
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	e.page.record(Event{Action: "scroll", Locator: e.locator})
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	e.page.record(Event{Action: "clear", Locator: e.locator})
	return nil
}

func (e *element) Type(ctx context.Context, text string, delay time.Duration) error {
	e.page.record(Event{Action: "type", Locator: e.locator, Value: text})
	return nil
}

func (e *element) Select(ctx context.Context, option string) error {
	e.page.record(Event{Action: "select", Locator: e.locator, Value: option})
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if e.page.ClickErr != nil {
		return e.page.ClickErr
	}
	e.page.record(Event{Action: "click", Locator: e.locator})
	if e.page.OnClick != nil {
		e.page.OnClick(e.page, e.locator)
	}
	return nil
}

// Checked reads the checked attribute from the current document
func (e *element) Checked(ctx context.Context) (bool, error) {
	e.page.mu.Lock()
	html := e.page.html
	e.page.mu.Unlock()

	doc, err := dom.Parse(html)
	if err != nil {
		return false, err
	}
	n := dom.Resolve(doc, e.locator)
	if n == nil {
		return false, nil
	}
	for _, a := range n.Attr {
		if a.Key == "checked" {
			return true, nil
		}
	}
	return false, nil
}

func (e *element) Eval(ctx context.Context, js string) error {
	e.page.record(Event{Action: "eval", Locator: e.locator, Value: js})
	return nil
}

// Opener hands out a prepared page
type Opener struct {
	Page   *Page
	Err    error
	Opened []crawler.OpenOptions
}

var _ crawler.Opener = (*Opener)(nil)

func (o *Opener) Open(ctx context.Context, opts crawler.OpenOptions) (crawler.Page, error) {
	o.Opened = append(o.Opened, opts)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Page, nil
}
