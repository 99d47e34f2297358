package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Skufu/SymptomDx/internal/clinical"
	"github.com/Skufu/SymptomDx/internal/model"
	"github.com/Skufu/SymptomDx/internal/notify"
	"github.com/Skufu/SymptomDx/internal/store"
)

var (
	// ErrInvalidRequest wraps a missing or malformed request field.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStoreUnavailable is returned by read operations when no store is
	// configured or the store failed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a user-facing status message about a side effect that did not
// change the primary result.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Service runs request-level operations: the engine plus persistence and
// notification. Store and sender are optional.
type Service struct {
	engine *Engine
	store  store.Store
	sender notify.Sender
	logger zerolog.Logger
}

func NewService(engine *Engine, st store.Store, sender notify.Sender, logger zerolog.Logger) *Service {
	return &Service{engine: engine, store: st, sender: sender, logger: logger}
}

// Engine exposes the underlying engine.
func (s *Service) Engine() *Engine { return s.engine }

type PredictRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Symptoms string `json:"symptoms" form:"symptoms"`
}

type PredictResult struct {
	*Prediction
	RecordID string   `json:"record_id,omitempty"`
	Notices  []Notice `json:"notices"`
}

// Predict diagnoses req.Symptoms, records the result and emails the
// patient. Persistence and email failures become notices.
func (s *Service) Predict(ctx context.Context, req PredictRequest) (*PredictResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}

	p, err := s.engine.Diagnose(req.Symptoms)
	if err != nil {
		return nil, err
	}
	res := &PredictResult{Prediction: p, Notices: []Notice{}}

	if s.store != nil {
		rec := &model.SelfDiagnosis{
			Name:        name,
			Email:       email,
			Diagnosis:   p.Disease,
			Description: p.Description,
			Symptoms:    strings.Join(p.Symptoms, ", "),
		}
		if err := s.store.SaveDiagnosis(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("email", email).Msg("save self diagnosis")
			res.Notices = append(res.Notices, Notice{NoticeError, "The diagnosis could not be saved to your history."})
		} else {
			res.RecordID = rec.ID
		}
	}

	res.Notices = append(res.Notices, s.send(ctx, notify.DiagnosisMessage(name, email, p.Disease, p.Description),
		"The diagnosis report was sent to your email."))
	return res, nil
}

type TestRequest struct {
	Kind   string            `json:"-"`
	Name   string            `json:"name"`
	Doctor string            `json:"-"`
	Values map[string]string `json:"fields"`
}

type TestResult struct {
	*TestOutcome
	RecordID string   `json:"record_id,omitempty"`
	Notices  []Notice `json:"notices"`
}

// RunTest runs a domain test and records it.
func (s *Service) RunTest(ctx context.Context, req TestRequest) (*TestResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	out, err := s.engine.RunTest(req.Kind, req.Values)
	if err != nil {
		return nil, err
	}
	res := &TestResult{TestOutcome: out, Notices: []Notice{}}

	if s.store != nil {
		rec := &model.TestResult{
			Kind:      string(out.Kind),
			Name:      name,
			Doctor:    req.Doctor,
			Diagnosis: out.Diagnosis,
			Features:  out.Features,
		}
		if err := s.store.SaveTestResult(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("test", rec.Kind).Msg("save test result")
			res.Notices = append(res.Notices, Notice{NoticeError, "The test result could not be saved."})
		} else {
			res.RecordID = rec.ID
		}
	}
	return res, nil
}

// History lists a patient's self-diagnoses matched by email or name.
func (s *Service) History(ctx context.Context, email, name string, limit int) ([]model.SelfDiagnosis, error) {
	if strings.TrimSpace(email) == "" && strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: email or name is required", ErrInvalidRequest)
	}
	return list(s, func(st store.Store) ([]model.SelfDiagnosis, error) {
		return st.ListDiagnoses(ctx, store.DiagnosisFilter{Email: email, Name: name, Limit: limit})
	})
}

// Records lists every self-diagnosis, newest first.
func (s *Service) Records(ctx context.Context, limit int) ([]model.SelfDiagnosis, error) {
	return list(s, func(st store.Store) ([]model.SelfDiagnosis, error) {
		return st.ListDiagnoses(ctx, store.DiagnosisFilter{Limit: limit})
	})
}

// TestResults lists stored results of one test kind.
func (s *Service) TestResults(ctx context.Context, kind string, limit int) ([]model.TestResult, error) {
	panel, err := clinical.Lookup(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownTest, err)
	}
	return list(s, func(st store.Store) ([]model.TestResult, error) {
		return st.ListTestResults(ctx, string(panel.Kind), limit)
	})
}

type QuestionRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Contact string `json:"contact" form:"contact"`
	Body    string `json:"question" form:"question"`
}

type QuestionResult struct {
	Question *model.Question `json:"question"`
	Notices  []Notice        `json:"notices"`
}

// Ask records a help desk question and acknowledges it by email.
func (s *Service) Ask(ctx context.Context, req QuestionRequest) (*QuestionResult, error) {
	q := &model.Question{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Contact: strings.TrimSpace(req.Contact),
		Body:    strings.TrimSpace(req.Body),
	}
	switch {
	case q.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case q.Email == "":
		return nil, fmt.Errorf("%w: email is required", ErrInvalidRequest)
	case q.Body == "":
		return nil, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	if err := s.store.SaveQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	notice := s.send(ctx, notify.HelpMessage(q.Name, q.Email), "Message sent to your email successfully.")
	return &QuestionResult{Question: q, Notices: []Notice{notice}}, nil
}

// Questions lists help desk questions, newest first.
func (s *Service) Questions(ctx context.Context, limit int) ([]model.Question, error) {
	return list(s, func(st store.Store) ([]model.Question, error) {
		return st.ListQuestions(ctx, limit)
	})
}

type ResponseResult struct {
	Response *model.Response `json:"response"`
	Notices  []Notice        `json:"notices"`
}

// Respond records an admin answer to a question and emails the asker.
func (s *Service) Respond(ctx context.Context, questionID, body string) (*ResponseResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: response is required", ErrInvalidRequest)
	}
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	r := &model.Response{QuestionID: q.ID, User: q.Name, Question: q.Body, Body: body}
	if err := s.store.SaveResponse(ctx, r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	notice := s.send(ctx, notify.ReplyMessage(q.Name, q.Email, q.Body, body), "The response was emailed to "+q.Email+".")
	return &ResponseResult{Response: r, Notices: []Notice{notice}}, nil
}

// Responses lists the published answers, newest first.
func (s *Service) Responses(ctx context.Context, limit int) ([]model.Response, error) {
	return list(s, func(st store.Store) ([]model.Response, error) {
		return st.ListResponses(ctx, limit)
	})
}

// Ping checks the store. A service without a store is always ready.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// HasStore reports whether records are persisted.
func (s *Service) HasStore() bool { return s.store != nil }

func (s *Service) send(ctx context.Context, m notify.Message, ok string) Notice {
	if s.sender == nil {
		return Notice{NoticeWarning, "Email notifications are disabled."}
	}
	if err := s.sender.Send(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("to", m.To).Str("subject", m.Subject).Msg("send email")
		return Notice{NoticeWarning, "The email could not be sent."}
	}
	return Notice{NoticeSuccess, ok}
}

func list[T any](s *Service, fn func(store.Store) ([]T, error)) ([]T, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	items, err := fn(s.store)
	if err != nil {
		s.logger.Error().Err(err).Msg("store query")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
