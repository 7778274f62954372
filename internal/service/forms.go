// Package service composes discovery, filling and persistence into the
// operations the CLI and HTTP API expose.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/formfill/internal/executor"
	"github.com/v0xg/formfill/internal/form"
	"go.uber.org/zap"
)

// Repository persists forms and their submissions
type Repository interface {
	CreateForm(ctx context.Context, f *form.Form) error
	ListForms(ctx context.Context) ([]form.Form, error)
	GetForm(ctx context.Context, id string) (*form.Form, error)
	DeleteForm(ctx context.Context, id string) error
	ClearForms(ctx context.Context) (int64, error)
	TouchForm(ctx context.Context, id string) error
	CreateSubmission(ctx context.Context, sub *form.Submission) error
	ListSubmissions(ctx context.Context, formID string) ([]form.Submission, error)
}

// Discoverer builds a descriptor from a live page
type Discoverer interface {
	Discover(ctx context.Context, url string) (*form.Form, error)
}

// FormFiller replays a descriptor on a live page
type FormFiller interface {
	Fill(ctx context.Context, fm *form.Form, values map[string]string, opts executor.Options) (*executor.Result, error)
}

// ValueGenerator proposes a value per fillable field
type ValueGenerator interface {
	Values(ctx context.Context, fields []form.Field) map[string]string
}

// Forms is the form workflow service
type Forms struct {
	repo      Repository
	analyzer  Discoverer
	filler    FormFiller
	generator ValueGenerator
	fillOpts  executor.Options
	log       *zap.Logger
	now       func() time.Time
}

// NewForms wires the service. fillOpts are the defaults for every fill;
// callers may override Speed and Visible per request.
func NewForms(repo Repository, analyzer Discoverer, filler FormFiller, generator ValueGenerator, fillOpts executor.Options, logger *zap.Logger) *Forms {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forms{
		repo:      repo,
		analyzer:  analyzer,
		filler:    filler,
		generator: generator,
		fillOpts:  fillOpts,
		log:       logger.Named("service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Analyze discovers the form at url and stores it
func (s *Forms) Analyze(ctx context.Context, url string) (*form.Form, error) {
	f, err := s.analyzer.Discover(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateForm(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save form: %w", err)
	}
	s.log.Info("Form analyzed", zap.String("id", f.ID), zap.String("url", url), zap.Int("fields", len(f.Fields)))
	return f, nil
}

// List returns all stored forms, most recently updated first
func (s *Forms) List(ctx context.Context) ([]form.Form, error) {
	return s.repo.ListForms(ctx)
}

// Get returns one stored form
func (s *Forms) Get(ctx context.Context, id string) (*form.Form, error) {
	return s.repo.GetForm(ctx, id)
}

// Delete removes one stored form
func (s *Forms) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteForm(ctx, id)
}

// Clear removes every stored form
func (s *Forms) Clear(ctx context.Context) (int64, error) {
	return s.repo.ClearForms(ctx)
}

// Submissions lists a form's submission history
func (s *Forms) Submissions(ctx context.Context, id string) ([]form.Submission, error) {
	if _, err := s.repo.GetForm(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListSubmissions(ctx, id)
}

// Generate proposes values for a stored form's fields
func (s *Forms) Generate(ctx context.Context, id string) (map[string]string, error) {
	f, err := s.repo.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.generator.Values(ctx, f.Fields), nil
}

// FillRequest carries per-request fill overrides
type FillRequest struct {
	Values  map[string]string
	Speed   time.Duration
	Visible bool
}

// Submit fills a stored form and records the attempt. A submission is
// recorded even when the fill fails; the fill error is still returned.
func (s *Forms) Submit(ctx context.Context, id string, req FillRequest) (*executor.Result, *form.Submission, error) {
	f, err := s.repo.GetForm(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	opts := s.fillOpts
	if req.Speed > 0 {
		opts.Speed = req.Speed
	}
	opts.Visible = opts.Visible || req.Visible

	res, fillErr := s.filler.Fill(ctx, f, req.Values, opts)

	sub := form.NewSubmission(f.ID, req.Values, fillErr, s.now())
	// Recording must survive a cancelled request
	recordCtx := context.WithoutCancel(ctx)
	if err := s.repo.CreateSubmission(recordCtx, &sub); err != nil {
		s.log.Error("Failed to record submission", zap.String("form", f.ID), zap.Error(err))
		if fillErr == nil {
			return res, nil, fmt.Errorf("failed to record submission: %w", err)
		}
	}
	if err := s.repo.TouchForm(recordCtx, f.ID); err != nil {
		s.log.Warn("Failed to update form timestamp", zap.String("form", f.ID), zap.Error(err))
	}

	if fillErr != nil {
		s.log.Warn("Fill failed", zap.String("form", f.ID), zap.Error(fillErr))
		return res, &sub, fillErr
	}
	s.log.Info("Form submitted",
		zap.String("form", f.ID),
		zap.Bool("submitted", res.Submitted),
		zap.Int("filled", len(res.Filled)),
	)
	return res, &sub, nil
}
