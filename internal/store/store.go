// Package store persists form descriptors and submission records in
// PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/v0xg/formfill/internal/form"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when no row matches the id
var ErrNotFound = errors.New("not found")

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store is the PostgreSQL repository for forms and submissions
type Store struct {
	pool DBPool
	log  *zap.Logger
	now  func() time.Time
}

// Open connects to dsn and verifies the connection
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewWithPool(pool, logger), nil
}

// NewWithPool wraps an existing pool
func NewWithPool(pool DBPool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS forms (
    id            TEXT PRIMARY KEY,
    url           TEXT NOT NULL,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    fields        JSONB NOT NULL,
    submit_button JSONB NOT NULL,
    created       TIMESTAMPTZ NOT NULL,
    updated       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS forms_updated_idx ON forms (updated DESC);

CREATE TABLE IF NOT EXISTS form_submissions (
    id           TEXT PRIMARY KEY,
    form_id      TEXT NOT NULL,
    field_values JSONB NOT NULL,
    status       TEXT NOT NULL,
    error        TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS form_submissions_form_idx ON form_submissions (form_id, submitted_at DESC);
`

// Migrate creates the tables when they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	s.log.Info("Schema up to date")
	return nil
}

// CreateForm inserts a new descriptor. Its id and timestamps are set only
// once the row is stored.
func (s *Store) CreateForm(ctx context.Context, f *form.Form) error {
	fields, err := json.Marshal(nonNilFields(f.Fields))
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	submit, err := json.Marshal(f.SubmitButton)
	if err != nil {
		return fmt.Errorf("failed to encode submit button: %w", err)
	}

	id, now := uuid.NewString(), s.now()
	_, err = s.pool.Exec(ctx, `
        INSERT INTO forms (id, url, name, description, fields, submit_button, created, updated)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, f.URL, f.Name, f.Description, fields, submit, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert form: %w", err)
	}
	f.ID = id
	f.Created, f.Updated = now, now
	return nil
}

const formColumns = `id, url, name, description, fields, submit_button, created, updated`

// ListForms returns every form, most recently updated first
func (s *Store) ListForms(ctx context.Context) ([]form.Form, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+formColumns+` FROM forms ORDER BY updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer rows.Close()

	forms := []form.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return forms, nil
}

// GetForm returns one form or ErrNotFound
func (s *Store) GetForm(ctx context.Context, id string) (*form.Form, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+formColumns+` FROM forms WHERE id = $1`, id)
	f, err := scanForm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// DeleteForm removes one form. Its submissions are kept.
func (s *Store) DeleteForm(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearForms removes every form and returns how many were deleted
func (s *Store) ClearForms(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM forms`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear forms: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TouchForm bumps the updated timestamp
func (s *Store) TouchForm(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE forms SET updated = $2 WHERE id = $1`, id, s.now())
	if err != nil {
		return fmt.Errorf("failed to touch form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSubmission inserts an immutable submission record
func (s *Store) CreateSubmission(ctx context.Context, sub *form.Submission) error {
	values := sub.Values
	if values == nil {
		values = map[string]string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}

	id, at := uuid.NewString(), sub.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	_, err = s.pool.Exec(ctx, `
        INSERT INTO form_submissions (id, form_id, field_values, status, error, submitted_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		id, sub.FormID, encoded, string(sub.Status), sub.Error, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	sub.ID, sub.Timestamp = id, at
	return nil
}

// ListSubmissions returns a form's submissions, newest first
func (s *Store) ListSubmissions(ctx context.Context, formID string) ([]form.Submission, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, form_id, field_values, status, error, submitted_at
        FROM form_submissions
        WHERE form_id = $1
        ORDER BY submitted_at DESC`, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	subs := []form.Submission{}
	for rows.Next() {
		var (
			sub    form.Submission
			values []byte
			status string
		)
		if err := rows.Scan(&sub.ID, &sub.FormID, &values, &status, &sub.Error, &sub.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		if err := json.Unmarshal(values, &sub.Values); err != nil {
			return nil, fmt.Errorf("failed to decode values of submission %s: %w", sub.ID, err)
		}
		sub.Status = form.Status(status)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return subs, nil
}

func scanForm(row pgx.Row) (*form.Form, error) {
	var (
		f              form.Form
		fields, submit []byte
	)
	err := row.Scan(&f.ID, &f.URL, &f.Name, &f.Description, &fields, &submit, &f.Created, &f.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan form row: %w", err)
	}
	if err := json.Unmarshal(fields, &f.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of form %s: %w", f.ID, err)
	}
	if err := json.Unmarshal(submit, &f.SubmitButton); err != nil {
		return nil, fmt.Errorf("failed to decode submit button of form %s: %w", f.ID, err)
	}
	return &f, nil
}

func nonNilFields(fields []form.Field) []form.Field {
	if fields == nil {
		return []form.Field{}
	}
	return fields
}
