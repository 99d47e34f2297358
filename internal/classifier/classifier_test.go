package classifier

import (
	"errors"
	"testing"

	"github.com/Skufu/SymptomDx/internal/reference"
	"github.com/Skufu/SymptomDx/internal/symptom"
)

func TestFixedChecksDimension(t *testing.T) {
	m := Fixed(3, 7)

	class, err := m.Predict([]float64{0, 1, 0})
	if err != nil || class != 7 {
		t.Fatalf("Predict = %d, %v", class, err)
	}

	_, err = m.Predict([]float64{1, 0})
	if !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}

func TestCheckDimSkipsUnsizedModels(t *testing.T) {
	if err := CheckDim(Fixed(0, 1), []float64{1, 2, 3}); err != nil {
		t.Fatalf("unsized model should accept any width: %v", err)
	}
}

type closer struct {
	Func
	closed *int
}

func (c closer) Close() error {
	*c.closed++
	return nil
}

func TestSetCloseReleasesClosers(t *testing.T) {
	n := 0
	s := &Set{General: Fixed(1, 0), Heart: closer{Func: Fixed(13, 1), closed: &n}, Kidney: closer{Func: Fixed(24, 0), closed: &n}}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 closes, got %d", n)
	}
}

func newNearest(t *testing.T) (*NearestProfile, *symptom.Vocabulary, symptom.Labels) {
	t.Helper()
	tables, err := reference.Load("../reference/testdata")
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	vocab := symptom.DefaultVocabulary()
	labels := symptom.DefaultLabels()
	m, err := NewNearestProfile(vocab, labels, tables)
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return m, vocab, labels
}

func TestNearestProfilePredicts(t *testing.T) {
	m, vocab, labels := newNearest(t)

	cases := []struct {
		symptoms string
		want     string
	}{
		{"itching, skin_rash, nodal skin eruptions", "Fungal infection"},
		{"continuous sneezing, chills", "Allergy"},
		{"acidity, stomach pain, vomiting", "GERD"},
		{"fatigue, lethargy", "Diabetes"},
	}
	for _, tc := range cases {
		vec, err := vocab.Vector(symptom.Parse(tc.symptoms))
		if err != nil {
			t.Fatalf("vector for %q: %v", tc.symptoms, err)
		}
		class, err := m.Predict(vec)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if got, _ := labels.Label(class); got != tc.want {
			t.Errorf("%q predicted %q, want %q", tc.symptoms, got, tc.want)
		}
	}
}

func TestNearestProfileIsDeterministic(t *testing.T) {
	m, vocab, _ := newNearest(t)
	vec, _ := vocab.Vector([]string{"itching", "chills"})
	first, _ := m.Predict(vec)
	for i := 0; i < 10; i++ {
		if got, _ := m.Predict(vec); got != first {
			t.Fatalf("prediction changed between calls: %d vs %d", got, first)
		}
	}
}

func TestNearestProfileRejectsWrongWidth(t *testing.T) {
	m, _, _ := newNearest(t)
	if _, err := m.Predict(make([]float64, 10)); !errors.Is(err, ErrDimension) {
		t.Fatalf("expected ErrDimension, got %v", err)
	}
}

func TestNearestProfileUnknownDisease(t *testing.T) {
	tables, err := reference.Load("../reference/testdata")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewNearestProfile(symptom.DefaultVocabulary(), symptom.Labels{"Acne"}, tables); err == nil {
		t.Fatal("expected error for profiles outside the label set")
	}
}
