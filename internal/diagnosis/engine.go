// Package diagnosis runs the prediction pipeline: symptom text or clinical
// form values in, a routed diagnosis with its supporting records out.
package diagnosis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Skufu/SymptomDx/internal/classifier"
	"github.com/Skufu/SymptomDx/internal/clinical"
	"github.com/Skufu/SymptomDx/internal/reference"
	"github.com/Skufu/SymptomDx/internal/symptom"
)

var (
	// ErrNoSymptoms means the input held no symptom after normalization.
	ErrNoSymptoms = errors.New("no symptoms provided")

	// ErrUnknownTest is returned for a test kind without a panel.
	ErrUnknownTest = errors.New("unknown test")

	// ErrModel wraps every classifier failure. These are deployment faults;
	// the caller logs the cause and reports a generic failure.
	ErrModel = errors.New("prediction failed")
)

// Prediction is the enriched result of a symptom diagnosis.
type Prediction struct {
	Disease  string   `json:"disease"`
	Symptoms []string `json:"symptoms"`
	reference.Enrichment
}

// TestOutcome is the routed result of a domain test.
type TestOutcome struct {
	Kind      clinical.Kind `json:"kind"`
	Title     string        `json:"title"`
	Features  []float64     `json:"features"`
	Class     int64         `json:"class"`
	Positive  bool          `json:"positive"`
	Diagnosis string        `json:"diagnosis"`
	Remedies  []string      `json:"remedies"`
}

// Options are the collaborators of an Engine.
type Options struct {
	Vocabulary *symptom.Vocabulary
	Labels     symptom.Labels
	Tables     *reference.Tables
	Models     classifier.Set
	Encoder    clinical.BinaryEncoder
}

// Engine holds the read-only state shared by every request.
type Engine struct {
	vocab   *symptom.Vocabulary
	labels  symptom.Labels
	tables  *reference.Tables
	models  classifier.Set
	encoder clinical.BinaryEncoder
}

// NewEngine checks that the general model fits the vocabulary and that
// every configured domain model fits its panel, so a width mismatch fails
// at start-up instead of on the first request.
func NewEngine(opts Options) (*Engine, error) {
	switch {
	case opts.Vocabulary == nil:
		return nil, errors.New("engine: vocabulary is required")
	case len(opts.Labels) == 0:
		return nil, errors.New("engine: labels are required")
	case opts.Tables == nil:
		return nil, errors.New("engine: reference tables are required")
	case opts.Models.General == nil:
		return nil, errors.New("engine: general model is required")
	}
	if dim := opts.Models.General.Dim(); dim > 0 && dim != opts.Vocabulary.Size() {
		return nil, fmt.Errorf("engine: general model expects %d features, vocabulary has %d: %w",
			dim, opts.Vocabulary.Size(), classifier.ErrDimension)
	}
	for _, kind := range clinical.Kinds() {
		m := domainModel(opts.Models, kind)
		if m == nil {
			continue
		}
		p, _ := clinical.Lookup(string(kind))
		if dim := m.Dim(); dim > 0 && dim != p.Dim() {
			return nil, fmt.Errorf("engine: %s model expects %d features, panel has %d: %w",
				kind, dim, p.Dim(), classifier.ErrDimension)
		}
	}

	return &Engine{
		vocab:   opts.Vocabulary,
		labels:  opts.Labels,
		tables:  opts.Tables,
		models:  opts.Models,
		encoder: opts.Encoder,
	}, nil
}

// Close releases the models.
func (e *Engine) Close() error {
	return e.models.Close()
}

// Symptoms lists the recognised symptom keys in feature order.
func (e *Engine) Symptoms() []string { return e.vocab.Keys() }

// Available reports whether a domain test has a model loaded.
func (e *Engine) Available(kind clinical.Kind) bool {
	return domainModel(e.models, kind) != nil
}

// Diagnose normalizes raw, predicts a disease and attaches its reference
// records. Unknown symptoms are reported as *symptom.UnknownSymptomError.
func (e *Engine) Diagnose(raw string) (*Prediction, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoSymptoms
	}
	keys := symptom.Parse(raw)
	if len(keys) == 0 {
		return nil, ErrNoSymptoms
	}

	vec, err := e.vocab.Vector(keys)
	if err != nil {
		return nil, err
	}
	class, err := e.models.General.Predict(vec)
	if err != nil {
		return nil, fmt.Errorf("%w: general model: %w", ErrModel, err)
	}
	label, ok := e.labels.Label(class)
	if !ok {
		return nil, fmt.Errorf("%w: class %d outside %d labels", ErrModel, class, len(e.labels))
	}

	return &Prediction{
		Disease:    strings.TrimSpace(label),
		Symptoms:   dedupe(keys),
		Enrichment: e.tables.Enrich(label),
	}, nil
}

// RunTest assembles the panel for kind from values and routes the
// classifier's class to the panel's diagnosis sentence.
func (e *Engine) RunTest(kind string, values map[string]string) (*TestOutcome, error) {
	panel, err := clinical.Lookup(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownTest, err)
	}
	m := domainModel(e.models, panel.Kind)
	if m == nil {
		return nil, fmt.Errorf("%s: %w", panel.Kind, classifier.ErrModelUnavailable)
	}

	vec, err := panel.Assemble(values, e.encoder)
	if err != nil {
		return nil, err
	}
	class, err := m.Predict(vec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s model: %w", ErrModel, panel.Kind, err)
	}

	remedies := make([]string, len(panel.Remedies))
	copy(remedies, panel.Remedies)
	return &TestOutcome{
		Kind:      panel.Kind,
		Title:     panel.Title,
		Features:  vec,
		Class:     class,
		Positive:  panel.IsPositive(class),
		Diagnosis: panel.Outcome(class),
		Remedies:  remedies,
	}, nil
}

func domainModel(s classifier.Set, kind clinical.Kind) classifier.Model {
	switch kind {
	case clinical.Diabetes:
		return s.Diabetes
	case clinical.Heart:
		return s.Heart
	case clinical.Kidney:
		return s.Kidney
	}
	return nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
