// Package analyzer discovers a form on a web page and turns it into a
// form.Form descriptor. All heuristics run host-side on a DOM snapshot.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
	"go.uber.org/zap"
)

var (
	// ErrNoFormFound is returned when no tier finds a fillable input
	ErrNoFormFound = errors.New("no form found on the page")
	// ErrPageUnreachable wraps navigation and network failures
	ErrPageUnreachable = errors.New("page unreachable")
)

// Options tunes discovery
type Options struct {
	// SettleDelay is waited after quiescence to catch late dynamic content
	SettleDelay time.Duration
}

// Analyzer drives a page through discovery
type Analyzer struct {
	opener crawler.Opener
	opts   Options
	log    *zap.Logger
}

// New creates an Analyzer
func New(opener crawler.Opener, opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{opener: opener, opts: opts, log: logger.Named("analyzer")}
}

// Discover loads url in a fresh headless page and analyzes its form
func (a *Analyzer) Discover(ctx context.Context, url string) (f *form.Form, err error) {
	page, err := a.opener.Open(ctx, crawler.OpenOptions{Headless: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil && err == nil {
			f, err = nil, fmt.Errorf("failed to close page: %w", cerr)
		}
	}()

	a.log.Info("navigating", zap.String("url", url))
	if err := page.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageUnreachable, err)
	}
	if err := page.WaitIdle(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageUnreachable, err)
	}
	if err := crawler.Sleep(ctx, a.opts.SettleDelay); err != nil {
		return nil, err
	}

	snapshot, err := page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	return a.Analyze(url, snapshot)
}

// Analyze builds a descriptor from a page snapshot. Location is strict and
// fails with ErrNoFormFound; extraction falls back to the body.
func (a *Analyzer) Analyze(url, snapshot string) (*form.Form, error) {
	doc, err := dom.Parse(snapshot)
	if err != nil {
		return nil, err
	}

	container, err := LocateForm(doc)
	if err != nil {
		a.log.Warn("no form container", zap.String("url", url))
		return nil, err
	}
	a.log.Debug("form located",
		zap.Stringer("tier", container.Tier),
		zap.Int("inputs", container.Inputs),
		zap.Bool("has_submit", container.HasSubmit),
	)

	fields := ExtractFields(doc)
	submit := FindSubmit(doc)
	if !submit.Found() {
		a.log.Warn("submit control not found", zap.String("url", url))
	}

	name := DetectName(doc)
	if name == "" {
		name = DefaultFormName
	}

	a.log.Info("form analyzed",
		zap.String("url", url),
		zap.String("name", name),
		zap.Int("fields", len(fields)),
	)
	return &form.Form{
		URL:          url,
		Name:         name,
		Fields:       fields,
		SubmitButton: submit,
	}, nil
}
