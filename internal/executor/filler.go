// Package executor replays a stored form descriptor against the live page:
// it types the supplied values and submits the form.
package executor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/v0xg/formfill/internal/analyzer"
	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
	"github.com/v0xg/formfill/internal/gifgen"
	"github.com/v0xg/formfill/internal/overlay"
	"go.uber.org/zap"
)

// Options configures a fill run
type Options struct {
	// Speed is the base pause between steps. Keystrokes are Speed/10 apart,
	// so a larger value types slower.
	Speed time.Duration
	// Visible opens a headed browser
	Visible bool
	// SubmitHold keeps the page open after submitting so the banner is seen
	SubmitHold time.Duration
	// Recorder, when set, receives a screenshot after every filled field
	// and after the submit
	Recorder *gifgen.Recorder
}

// Filler fills forms on live pages
type Filler struct {
	opener crawler.Opener
	log    *zap.Logger
}

// New creates a Filler
func New(opener crawler.Opener, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{opener: opener, log: logger.Named("filler")}
}

// Fill opens the form's page, fills every field with a supplied value and
// submits. The returned Result is non-nil even when an error is returned;
// its State is then StateFailed. The page is always closed.
func (f *Filler) Fill(ctx context.Context, fm *form.Form, values map[string]string, opts Options) (res *Result, err error) {
	res = &Result{State: StateNavigating, Filled: []string{}}
	log := f.log.With(zap.String("url", fm.URL))

	page, err := f.opener.Open(ctx, crawler.OpenOptions{Headless: !opts.Visible})
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close page: %w", cerr)
		}
		if err != nil {
			res.State = StateFailed
			res.Success = false
		}
	}()

	log.Info("navigating")
	if err := page.Navigate(ctx, fm.URL); err != nil {
		return res, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	if err := page.WaitIdle(ctx); err != nil {
		return res, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	if err := crawler.Sleep(ctx, opts.Speed); err != nil {
		return res, err
	}

	res.State = StateFillingFields
	for _, field := range fm.Fields {
		if field.Unfillable() {
			log.Info("skipping field", zap.String("field", field.Name), zap.String("type", string(field.Type)))
			res.skip(field.Name, SkipUnfillable, nil)
			continue
		}
		value, ok := values[field.Name]
		if !ok {
			log.Debug("no value for field", zap.String("field", field.Name))
			res.skip(field.Name, SkipNoValue, nil)
			continue
		}

		el, locator, err := f.resolveField(ctx, page, field)
		if err != nil {
			return res, err
		}
		if el == nil {
			log.Warn("field not found", zap.String("field", field.Name))
			res.skip(field.Name, SkipNotFound, nil)
			continue
		}

		log.Debug("filling field", zap.String("field", field.Name), zap.String("locator", locator))
		applied, err := f.fillField(ctx, page, el, field, value, opts)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("error filling field", zap.String("field", field.Name), zap.Error(err))
			res.skip(field.Name, SkipFailed, err)
			continue
		}
		if !applied {
			log.Debug("field already in requested state", zap.String("field", field.Name))
			res.skip(field.Name, SkipUnchanged, nil)
			continue
		}
		res.Filled = append(res.Filled, field.Name)
		f.capture(ctx, page, opts)
	}

	res.State = StateLocatingSubmit
	submit := f.locateSubmit(ctx, page)
	if submit == nil {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log.Warn("submit button not found")
		res.SubmitNotFound = true
		res.Success = true
		res.State = StateDone
		return res, nil
	}

	res.State = StateSubmitting
	if err := overlay.Highlight(ctx, submit, overlay.SubmitStyle); err != nil {
		log.Debug("highlight failed", zap.Error(err))
	}
	if err := crawler.Sleep(ctx, opts.Speed); err != nil {
		return res, err
	}

	settled := page.WaitSettle(ctx)
	log.Info("clicking submit button")
	if err := submit.Click(ctx); err != nil {
		return res, fmt.Errorf("%w: %w", ErrSubmitClickFailed, err)
	}

	res.State = StateAwaitingSettle
	if err := settled(); err != nil {
		return res, err
	}
	res.Submitted = true
	f.capture(ctx, page, opts)

	if err := overlay.ShowBanner(ctx, page, overlay.DefaultBanner, holdNote(opts.SubmitHold)); err != nil {
		log.Debug("banner failed", zap.Error(err))
	}
	if err := crawler.Sleep(ctx, opts.SubmitHold); err != nil {
		return res, err
	}

	res.Success = true
	res.State = StateDone
	log.Info("form submitted", zap.Int("filled", len(res.Filled)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// fillField drives one element: scroll, highlight, enter the value,
// unhighlight. It reports whether the value changed the element.
func (f *Filler) fillField(ctx context.Context, page crawler.Page, el crawler.Element, field form.Field, value string, opts Options) (bool, error) {
	if err := el.ScrollIntoView(ctx); err != nil {
		return false, err
	}
	if err := crawler.Sleep(ctx, opts.Speed/2); err != nil {
		return false, err
	}
	if err := overlay.Highlight(ctx, el, overlay.FieldStyle); err != nil {
		return false, err
	}

	applied, err := f.enter(ctx, page, el, field, value, opts)
	if err != nil {
		return false, err
	}

	if err := overlay.Unhighlight(ctx, el); err != nil {
		return false, err
	}
	return applied, crawler.Sleep(ctx, opts.Speed/2)
}

// enter applies value to el. It reports false when the element was already
// in the requested state and nothing was done.
func (f *Filler) enter(ctx context.Context, page crawler.Page, el crawler.Element, field form.Field, value string, opts Options) (bool, error) {
	switch field.Type {
	case form.TypeSelect:
		return true, el.Select(ctx, value)
	case form.TypeRadio:
		if slices.Contains(field.Options, value) {
			option, ok, err := page.Find(ctx, dom.AttrSelector(dom.AttrSelector(`input[type="radio"]`, "name", "=", field.Name), "value", "=", value))
			if err != nil {
				return false, err
			}
			if ok {
				return toggle(ctx, option, true)
			}
		}
		if !truthy(value) {
			// A radio cannot be unchecked by clicking it
			return false, nil
		}
		return toggle(ctx, el, true)
	case form.TypeCheckbox:
		return toggle(ctx, el, truthy(value))
	}

	if err := el.Clear(ctx); err != nil {
		return false, err
	}
	if err := crawler.Sleep(ctx, opts.Speed/2); err != nil {
		return false, err
	}
	return true, el.Type(ctx, value, opts.Speed/10)
}

// toggle clicks el only when its checked state differs from want
func toggle(ctx context.Context, el crawler.Element, want bool) (bool, error) {
	checked, err := el.Checked(ctx)
	if err != nil {
		return false, err
	}
	if checked == want {
		return false, nil
	}
	return true, el.Click(ctx)
}

// locateSubmit runs the submit search on a fresh snapshot and resolves the
// result on the live page. Failures here only mean no control is known.
func (f *Filler) locateSubmit(ctx context.Context, page crawler.Page) crawler.Element {
	snapshot, err := page.Snapshot(ctx)
	if err != nil {
		f.log.Warn("snapshot failed", zap.Error(err))
		return nil
	}
	doc, err := dom.Parse(snapshot)
	if err != nil {
		f.log.Warn("snapshot unreadable", zap.Error(err))
		return nil
	}

	control := analyzer.FindSubmit(doc)
	for _, loc := range []string{control.Selector, control.XPath} {
		if loc == "" {
			continue
		}
		el, ok, err := page.Find(ctx, loc)
		if err != nil {
			f.log.Debug("submit locator failed", zap.String("locator", loc), zap.Error(err))
			continue
		}
		if ok {
			f.log.Debug("found submit button", zap.String("locator", loc), zap.String("text", control.Text))
			return el
		}
	}
	return nil
}

// capture adds a frame to the recorder. Recording is best effort.
func (f *Filler) capture(ctx context.Context, page crawler.Page, opts Options) {
	if opts.Recorder == nil {
		return
	}
	shot, err := page.Screenshot(ctx)
	if err == nil {
		err = opts.Recorder.Add(shot)
	}
	if err != nil {
		f.log.Debug("frame capture failed", zap.Error(err))
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "yes", "1", "checked":
		return true
	}
	return false
}

func holdNote(d time.Duration) string {
	if d < time.Second {
		return "This window will close shortly..."
	}
	return fmt.Sprintf("This window will close in %d seconds...", int(d.Round(time.Second)/time.Second))
}
