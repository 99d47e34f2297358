// Package store persists self-diagnoses, test results and the help desk.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Skufu/SymptomDx/internal/model"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultLimit caps list queries that do not set one.
const DefaultLimit = 100

// DiagnosisFilter selects self-diagnoses. Email and Name match with OR;
// both empty lists every record.
type DiagnosisFilter struct {
	Email string
	Name  string
	Limit int
}

// Store defines the persistence interface.
type Store interface {
	SaveDiagnosis(ctx context.Context, d *model.SelfDiagnosis) error
	// ListDiagnoses returns matching records, newest first.
	ListDiagnoses(ctx context.Context, f DiagnosisFilter) ([]model.SelfDiagnosis, error)

	SaveTestResult(ctx context.Context, r *model.TestResult) error
	// ListTestResults returns results of one kind (all kinds when empty), newest first.
	ListTestResults(ctx context.Context, kind string, limit int) ([]model.TestResult, error)

	SaveQuestion(ctx context.Context, q *model.Question) error
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	ListQuestions(ctx context.Context, limit int) ([]model.Question, error)

	SaveResponse(ctx context.Context, r *model.Response) error
	ListResponses(ctx context.Context, limit int) ([]model.Response, error)

	// Migrate creates the schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Options tunes Open.
type Options struct {
	MaxConns int32
	MinConns int32
}

// Open connects to the store named by url. postgres:// and postgresql://
// select PostgreSQL; sqlite://, file: or a plain path select SQLite.
// The schema is migrated before returning.
func Open(ctx context.Context, url string, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch {
	case url == "":
		return nil, errors.New("empty database url")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		s, err = NewPostgresStore(ctx, url, opts.MaxConns, opts.MinConns)
	default:
		path := strings.TrimPrefix(url, "sqlite://")
		path = strings.TrimPrefix(path, "file:")
		s, err = NewSQLiteStore(path)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

type idSource struct {
	mu      sync.Mutex
	entropy *rand.Rand
}

func newIDSource() *idSource {
	return &idSource{entropy: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *idSource) next(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func limitOr(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
