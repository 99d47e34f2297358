package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/SymptomDx/internal/model"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	ids  *idSource
}

// NewPool parses databaseURL, applies the connection limits and pings the
// server before returning.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresStore connects to databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL string, maxConns, minConns int32) (*PostgresStore, error) {
	pool, err := NewPool(ctx, databaseURL, maxConns, minConns)
	if err != nil {
		return nil, err
	}
	return NewPostgresStoreFromPool(pool), nil
}

// NewPostgresStoreFromPool wraps an existing pool. Close closes the pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, ids: newIDSource()}
}

func (s *PostgresStore) conn() queryable { return s.pool }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.conn().Exec(ctx, `
	CREATE TABLE IF NOT EXISTS self_diagnoses (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL,
		diagnosis   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		symptoms    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_self_diagnoses_email ON self_diagnoses(email);
	CREATE INDEX IF NOT EXISTS idx_self_diagnoses_created ON self_diagnoses(created_at DESC);

	CREATE TABLE IF NOT EXISTS test_results (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		name       TEXT NOT NULL,
		doctor     TEXT NOT NULL DEFAULT '',
		diagnosis  TEXT NOT NULL,
		features   DOUBLE PRECISION[] NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_test_results_kind ON test_results(kind, created_at DESC);

	CREATE TABLE IF NOT EXISTS questions (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		contact    TEXT NOT NULL DEFAULT '',
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS responses (
		id          TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		user_name   TEXT NOT NULL,
		question    TEXT NOT NULL,
		body        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) stamp(id *string, at *time.Time) {
	if at.IsZero() {
		*at = time.Now().UTC()
	}
	if *id == "" {
		*id = s.ids.next(*at)
	}
}

const diagnosisCols = `id, name, email, diagnosis, description, symptoms, created_at`

func scanDiagnosis(row pgx.Row) (model.SelfDiagnosis, error) {
	var d model.SelfDiagnosis
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Diagnosis, &d.Description, &d.Symptoms, &d.CreatedAt)
	return d, err
}

func (s *PostgresStore) SaveDiagnosis(ctx context.Context, d *model.SelfDiagnosis) error {
	s.stamp(&d.ID, &d.CreatedAt)
	_, err := s.conn().Exec(ctx, `
		INSERT INTO self_diagnoses (`+diagnosisCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.Name, d.Email, d.Diagnosis, d.Description, d.Symptoms, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert self diagnosis: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDiagnoses(ctx context.Context, f DiagnosisFilter) ([]model.SelfDiagnosis, error) {
	rows, err := s.conn().Query(ctx, `
		SELECT `+diagnosisCols+` FROM self_diagnoses
		WHERE ($1::text = '' AND $2::text = '') OR ($1::text <> '' AND email = $1) OR ($2::text <> '' AND name = $2)
		ORDER BY created_at DESC, id DESC LIMIT $3`,
		f.Email, f.Name, limitOr(f.Limit))
	if err != nil {
		return nil, fmt.Errorf("list self diagnoses: %w", err)
	}
	defer rows.Close()

	var out []model.SelfDiagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const testResultCols = `id, kind, name, doctor, diagnosis, features, created_at`

func scanTestResult(row pgx.Row) (model.TestResult, error) {
	var r model.TestResult
	err := row.Scan(&r.ID, &r.Kind, &r.Name, &r.Doctor, &r.Diagnosis, &r.Features, &r.CreatedAt)
	return r, err
}

func (s *PostgresStore) SaveTestResult(ctx context.Context, r *model.TestResult) error {
	s.stamp(&r.ID, &r.CreatedAt)
	_, err := s.conn().Exec(ctx, `
		INSERT INTO test_results (`+testResultCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.Kind, r.Name, r.Doctor, r.Diagnosis, r.Features, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTestResults(ctx context.Context, kind string, limit int) ([]model.TestResult, error) {
	rows, err := s.conn().Query(ctx, `
		SELECT `+testResultCols+` FROM test_results
		WHERE $1::text = '' OR kind = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, kind, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	var out []model.TestResult
	for rows.Next() {
		r, err := scanTestResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const questionCols = `id, name, email, contact, body, created_at`

func scanQuestion(row pgx.Row) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.Name, &q.Email, &q.Contact, &q.Body, &q.CreatedAt)
	return q, err
}

func (s *PostgresStore) SaveQuestion(ctx context.Context, q *model.Question) error {
	s.stamp(&q.ID, &q.CreatedAt)
	_, err := s.conn().Exec(ctx, `
		INSERT INTO questions (`+questionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		q.ID, q.Name, q.Email, q.Contact, q.Body, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := scanQuestion(s.conn().QueryRow(ctx, `SELECT `+questionCols+` FROM questions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, limit int) ([]model.Question, error) {
	rows, err := s.conn().Query(ctx, `
		SELECT `+questionCols+` FROM questions
		ORDER BY created_at DESC, id DESC LIMIT $1`, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

const responseCols = `id, question_id, user_name, question, body, created_at`

func (s *PostgresStore) SaveResponse(ctx context.Context, r *model.Response) error {
	s.stamp(&r.ID, &r.CreatedAt)
	_, err := s.conn().Exec(ctx, `
		INSERT INTO responses (`+responseCols+`)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.QuestionID, r.User, r.Question, r.Body, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListResponses(ctx context.Context, limit int) ([]model.Response, error) {
	rows, err := s.conn().Query(ctx, `
		SELECT `+responseCols+` FROM responses
		ORDER BY created_at DESC, id DESC LIMIT $1`, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.User, &r.Question, &r.Body, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
