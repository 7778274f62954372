package executor

import (
	"context"
	"fmt"

	"github.com/v0xg/formfill/internal/analyzer"
	"github.com/v0xg/formfill/internal/crawler"
	"github.com/v0xg/formfill/internal/dom"
	"github.com/v0xg/formfill/internal/form"
)

// PlanStep is what a fill would do with one field
type PlanStep struct {
	Field   string     `json:"field"`
	Locator string     `json:"locator,omitempty"`
	Value   string     `json:"value,omitempty"`
	Skip    SkipReason `json:"skip,omitempty"`
}

// Plan is a dry run of a fill against a page snapshot
type Plan struct {
	Steps  []PlanStep         `json:"steps"`
	Submit form.SubmitControl `json:"submit"`
}

// PlanFill resolves every field's locator chain against a snapshot without
// touching the page
func PlanFill(fm *form.Form, values map[string]string, snapshot string) (*Plan, error) {
	doc, err := dom.Parse(snapshot)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Steps: make([]PlanStep, 0, len(fm.Fields))}
	for _, field := range fm.Fields {
		step := PlanStep{Field: field.Name}
		value, ok := values[field.Name]
		switch {
		case field.Unfillable():
			step.Skip = SkipUnfillable
		case !ok:
			step.Skip = SkipNoValue
		default:
			step.Value = value
			step.Skip = SkipNotFound
			for _, loc := range Locators(field) {
				if dom.Resolve(doc, loc) != nil {
					step.Locator = loc
					step.Skip = ""
					break
				}
			}
		}
		plan.Steps = append(plan.Steps, step)
	}
	plan.Submit = analyzer.FindSubmit(doc)
	return plan, nil
}

// DryRun loads the form's page and plans the fill on its snapshot
func (f *Filler) DryRun(ctx context.Context, fm *form.Form, values map[string]string, opts Options) (plan *Plan, err error) {
	page, err := f.opener.Open(ctx, crawler.OpenOptions{Headless: !opts.Visible})
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil && err == nil {
			plan, err = nil, fmt.Errorf("failed to close page: %w", cerr)
		}
	}()

	if err := page.Navigate(ctx, fm.URL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	if err := page.WaitIdle(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
	if err := crawler.Sleep(ctx, opts.Speed); err != nil {
		return nil, err
	}

	snapshot, err := page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	return PlanFill(fm, values, snapshot)
}
