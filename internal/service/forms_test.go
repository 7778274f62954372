package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/formfill/internal/analyzer"
	"github.com/v0xg/formfill/internal/executor"
	"github.com/v0xg/formfill/internal/form"
	"github.com/v0xg/formfill/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memRepo struct {
	forms       map[string]*form.Form
	submissions []form.Submission
	touched     []string
	seq         int
	submitErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{forms: map[string]*form.Form{}}
}

func (m *memRepo) CreateForm(_ context.Context, f *form.Form) error {
	m.seq++
	f.ID = "form-" + strconv.Itoa(m.seq)
	m.forms[f.ID] = f
	return nil
}

func (m *memRepo) ListForms(context.Context) ([]form.Form, error) {
	out := []form.Form{}
	for _, f := range m.forms {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetForm(_ context.Context, id string) (*form.Form, error) {
	f, ok := m.forms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f, nil
}

func (m *memRepo) DeleteForm(_ context.Context, id string) error {
	if _, ok := m.forms[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.forms, id)
	return nil
}

func (m *memRepo) ClearForms(context.Context) (int64, error) {
	n := int64(len(m.forms))
	m.forms = map[string]*form.Form{}
	return n, nil
}

func (m *memRepo) TouchForm(_ context.Context, id string) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *memRepo) CreateSubmission(ctx context.Context, sub *form.Submission) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	sub.ID = "sub-" + strconv.Itoa(len(m.submissions)+1)
	m.submissions = append(m.submissions, *sub)
	return nil
}

func (m *memRepo) ListSubmissions(_ context.Context, formID string) ([]form.Submission, error) {
	out := []form.Submission{}
	for _, s := range m.submissions {
		if s.FormID == formID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubAnalyzer struct {
	form *form.Form
	err  error
}

func (s stubAnalyzer) Discover(_ context.Context, url string) (*form.Form, error) {
	if s.err != nil {
		return nil, s.err
	}
	f := *s.form
	f.URL = url
	return &f, nil
}

type stubFiller struct {
	res  *executor.Result
	err  error
	opts executor.Options
}

func (s *stubFiller) Fill(_ context.Context, _ *form.Form, _ map[string]string, opts executor.Options) (*executor.Result, error) {
	s.opts = opts
	return s.res, s.err
}

type stubGenerator map[string]string

func (s stubGenerator) Values(context.Context, []form.Field) map[string]string { return s }

var contactForm = &form.Form{
	Name:   "Contact Us",
	Fields: []form.Field{{Name: "email", Type: form.TypeEmail}},
}

func newService(repo *memRepo, filler *stubFiller, logger *zap.Logger) *Forms {
	s := NewForms(repo, stubAnalyzer{form: contactForm}, filler, stubGenerator{"email": "a@b.com"},
		executor.Options{Speed: 500 * time.Millisecond, SubmitHold: time.Second}, logger)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestAnalyzePersists(t *testing.T) {
	repo := newMemRepo()
	s := newService(repo, &stubFiller{}, nil)

	f, err := s.Analyze(context.Background(), "https://example.com/contact")
	require.NoError(t, err)
	assert.Equal(t, "form-1", f.ID)
	assert.Equal(t, "https://example.com/contact", repo.forms["form-1"].URL)
}

func TestAnalyzeDoesNotPersistOnFailure(t *testing.T) {
	repo := newMemRepo()
	s := NewForms(repo, stubAnalyzer{err: analyzer.ErrNoFormFound}, &stubFiller{}, nil, executor.Options{}, nil)

	_, err := s.Analyze(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, analyzer.ErrNoFormFound)
	assert.Empty(t, repo.forms)
}

func TestSubmitRecordsSuccess(t *testing.T) {
	repo := newMemRepo()
	filler := &stubFiller{res: &executor.Result{Success: true, Submitted: true, Filled: []string{"email"}}}
	s := newService(repo, filler, nil)
	f, err := s.Analyze(context.Background(), "https://example.com")
	require.NoError(t, err)

	res, sub, err := s.Submit(context.Background(), f.ID, FillRequest{Values: map[string]string{"email": "a@b.com"}, Visible: true})
	require.NoError(t, err)
	assert.True(t, res.Submitted)
	assert.Equal(t, form.StatusSuccess, sub.Status)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, []string{f.ID}, repo.touched)

	assert.Equal(t, 500*time.Millisecond, filler.opts.Speed)
	assert.True(t, filler.opts.Visible)
	assert.Equal(t, time.Second, filler.opts.SubmitHold)
}

func TestSubmitRecordsFailure(t *testing.T) {
	repo := newMemRepo()
	fillErr := errors.New("navigation failed: net::ERR_NAME_NOT_RESOLVED")
	filler := &stubFiller{res: &executor.Result{State: executor.StateFailed}, err: fillErr}
	core, logs := observer.New(zap.WarnLevel)
	s := newService(repo, filler, zap.New(core))
	f, err := s.Analyze(context.Background(), "https://example.com")
	require.NoError(t, err)

	res, sub, err := s.Submit(context.Background(), f.ID, FillRequest{Speed: 50 * time.Millisecond})
	assert.ErrorIs(t, err, fillErr)
	require.NotNil(t, res)
	require.NotNil(t, sub)
	assert.Equal(t, form.StatusError, sub.Status)
	assert.Equal(t, fillErr.Error(), sub.Error)
	assert.Len(t, repo.submissions, 1)
	assert.Equal(t, 50*time.Millisecond, filler.opts.Speed)
	assert.Equal(t, 1, logs.FilterMessage("Fill failed").Len())
}

func TestSubmitRecordsAfterCancellation(t *testing.T) {
	repo := newMemRepo()
	filler := &stubFiller{res: &executor.Result{State: executor.StateFailed}, err: context.Canceled}
	s := newService(repo, filler, nil)
	f, err := s.Analyze(context.Background(), "https://example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Submit(ctx, f.ID, FillRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, repo.submissions, 1)
}

func TestSubmitRecordingError(t *testing.T) {
	repo := newMemRepo()
	repo.submitErr = errors.New("db down")
	s := newService(repo, &stubFiller{res: &executor.Result{Success: true}}, nil)
	f, err := s.Analyze(context.Background(), "https://example.com")
	require.NoError(t, err)

	_, _, err = s.Submit(context.Background(), f.ID, FillRequest{})
	assert.ErrorIs(t, err, repo.submitErr)
}

func TestSubmitUnknownForm(t *testing.T) {
	filler := &stubFiller{}
	s := newService(newMemRepo(), filler, nil)

	_, _, err := s.Submit(context.Background(), "nope", FillRequest{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmissionsAndGenerate(t *testing.T) {
	repo := newMemRepo()
	s := newService(repo, &stubFiller{res: &executor.Result{Success: true}}, nil)
	f, err := s.Analyze(context.Background(), "https://example.com")
	require.NoError(t, err)

	_, _, err = s.Submit(context.Background(), f.ID, FillRequest{})
	require.NoError(t, err)

	subs, err := s.Submissions(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	_, err = s.Submissions(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	values, err := s.Generate(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", values["email"])
}

func TestDeleteAndClear(t *testing.T) {
	repo := newMemRepo()
	s := newService(repo, &stubFiller{}, nil)
	for range 3 {
		_, err := s.Analyze(context.Background(), "https://example.com")
		require.NoError(t, err)
	}

	require.NoError(t, s.Delete(context.Background(), "form-2"))
	assert.ErrorIs(t, s.Delete(context.Background(), "form-2"), store.ErrNotFound)

	forms, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, forms, 2)

	n, err := s.Clear(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
