package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Skufu/SymptomDx/internal/model"
)

// Fixed-width UTC timestamps keep text ordering equal to time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ids *idSource
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return &SQLiteStore{db: db, ids: newIDSource()}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS self_diagnoses (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL,
		diagnosis   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		symptoms    TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_self_diagnoses_email ON self_diagnoses(email);
	CREATE INDEX IF NOT EXISTS idx_self_diagnoses_created ON self_diagnoses(created_at DESC);

	CREATE TABLE IF NOT EXISTS test_results (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		name       TEXT NOT NULL,
		doctor     TEXT NOT NULL DEFAULT '',
		diagnosis  TEXT NOT NULL,
		features   TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_test_results_kind ON test_results(kind, created_at DESC);

	CREATE TABLE IF NOT EXISTS questions (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		contact    TEXT NOT NULL DEFAULT '',
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS responses (
		id          TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		user_name   TEXT NOT NULL,
		question    TEXT NOT NULL,
		body        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) stamp(id *string, at *time.Time) string {
	if at.IsZero() {
		*at = time.Now().UTC()
	}
	if *id == "" {
		*id = s.ids.next(*at)
	}
	return at.UTC().Format(sqliteTime)
}

func (s *SQLiteStore) SaveDiagnosis(ctx context.Context, d *model.SelfDiagnosis) error {
	created := s.stamp(&d.ID, &d.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO self_diagnoses (id, name, email, diagnosis, description, symptoms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Email, d.Diagnosis, d.Description, d.Symptoms, created)
	if err != nil {
		return fmt.Errorf("insert self diagnosis: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDiagnoses(ctx context.Context, f DiagnosisFilter) ([]model.SelfDiagnosis, error) {
	query := `SELECT id, name, email, diagnosis, description, symptoms, created_at FROM self_diagnoses`
	var args []any
	switch {
	case f.Email != "" && f.Name != "":
		query += ` WHERE email = ? OR name = ?`
		args = append(args, f.Email, f.Name)
	case f.Email != "":
		query += ` WHERE email = ?`
		args = append(args, f.Email)
	case f.Name != "":
		query += ` WHERE name = ?`
		args = append(args, f.Name)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limitOr(f.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list self diagnoses: %w", err)
	}
	defer rows.Close()

	var out []model.SelfDiagnosis
	for rows.Next() {
		var (
			d       model.SelfDiagnosis
			created string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Diagnosis, &d.Description, &d.Symptoms, &created); err != nil {
			return nil, err
		}
		d.CreatedAt = parseSQLiteTime(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveTestResult(ctx context.Context, r *model.TestResult) error {
	created := s.stamp(&r.ID, &r.CreatedAt)
	features, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO test_results (id, kind, name, doctor, diagnosis, features, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.Name, r.Doctor, r.Diagnosis, string(features), created)
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTestResults(ctx context.Context, kind string, limit int) ([]model.TestResult, error) {
	query := `SELECT id, kind, name, doctor, diagnosis, features, created_at FROM test_results`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limitOr(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	var out []model.TestResult
	for rows.Next() {
		var (
			r                 model.TestResult
			features, created string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.Name, &r.Doctor, &r.Diagnosis, &features, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", r.ID, err)
		}
		r.CreatedAt = parseSQLiteTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveQuestion(ctx context.Context, q *model.Question) error {
	created := s.stamp(&q.ID, &q.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (id, name, email, contact, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.Name, q.Email, q.Contact, q.Body, created)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	var (
		q       model.Question
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, contact, body, created_at FROM questions WHERE id = ?`, id).
		Scan(&q.ID, &q.Name, &q.Email, &q.Contact, &q.Body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	q.CreatedAt = parseSQLiteTime(created)
	return &q, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, limit int) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, contact, body, created_at FROM questions
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var (
			q       model.Question
			created string
		)
		if err := rows.Scan(&q.ID, &q.Name, &q.Email, &q.Contact, &q.Body, &created); err != nil {
			return nil, err
		}
		q.CreatedAt = parseSQLiteTime(created)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveResponse(ctx context.Context, r *model.Response) error {
	created := s.stamp(&r.ID, &r.CreatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (id, question_id, user_name, question, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.QuestionID, r.User, r.Question, r.Body, created)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListResponses(ctx context.Context, limit int) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, user_name, question, body, created_at FROM responses
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limitOr(limit))
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []model.Response
	for rows.Next() {
		var (
			r       model.Response
			created string
		)
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.User, &r.Question, &r.Body, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseSQLiteTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse(sqliteTime, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
