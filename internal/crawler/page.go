package crawler

import (
	"context"
	"time"
)

// Page is a controllable browser page. One Page is owned by exactly one
// discovery or fill invocation and must be closed on every exit path.
type Page interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// WaitIdle waits for network quiescence. Pages that keep connections
	// open are cut off by the configured idle timeout, which is not an error.
	WaitIdle(ctx context.Context) error
	// Snapshot serializes the current document. Controls without a layout
	// box carry the dom.HiddenMarkAttr attribute.
	Snapshot(ctx context.Context) (string, error)
	// Find resolves a CSS or XPath locator without waiting for it to appear
	Find(ctx context.Context, locator string) (Element, bool, error)
	// Eval runs a script in page context
	Eval(ctx context.Context, js string) error
	// WaitSettle arms a waiter for whichever comes first, a navigation or
	// network idle. Call it before the action that triggers the change.
	WaitSettle(ctx context.Context) func() error
	// Screenshot captures the viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Element is a live element handle
type Element interface {
	ScrollIntoView(ctx context.Context) error
	// Clear selects the current value and deletes it
	Clear(ctx context.Context) error
	// Type sends text one keystroke at a time, pausing delay between keys
	Type(ctx context.Context, text string, delay time.Duration) error
	// Select picks the option whose text matches
	Select(ctx context.Context, option string) error
	Click(ctx context.Context) error
	// Checked reports the live checked state of a checkbox or radio
	Checked(ctx context.Context) (bool, error)
	// Eval runs a function with the element bound to this
	Eval(ctx context.Context, js string) error
}

// OpenOptions configures a single page acquisition
type OpenOptions struct {
	Headless bool
}

// Opener acquires a fresh, independent page
type Opener interface {
	Open(ctx context.Context, opts OpenOptions) (Page, error)
}
