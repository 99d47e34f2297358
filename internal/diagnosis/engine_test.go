package diagnosis

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Skufu/SymptomDx/internal/classifier"
	"github.com/Skufu/SymptomDx/internal/clinical"
	"github.com/Skufu/SymptomDx/internal/reference"
	"github.com/Skufu/SymptomDx/internal/symptom"
)

const fungalInfection = 15

func loadTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Load("../reference/testdata")
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	return tables
}

func newTestEngine(t *testing.T, models classifier.Set) *Engine {
	t.Helper()
	vocab := symptom.DefaultVocabulary()
	if models.General == nil {
		models.General = classifier.Fixed(vocab.Size(), fungalInfection)
	}
	e, err := NewEngine(Options{
		Vocabulary: vocab,
		Labels:     symptom.DefaultLabels(),
		Tables:     loadTables(t),
		Models:     models,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestDiagnoseEnrichesPredictedLabel(t *testing.T) {
	var seen []float64
	vocab := symptom.DefaultVocabulary()
	general := classifier.Func{N: vocab.Size(), Fn: func(f []float64) int64 {
		seen = f
		return fungalInfection
	}}
	e := newTestEngine(t, classifier.Set{General: general})

	p, err := e.Diagnose("itching, skin_rash, nodal skin eruptions")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}

	ones := 0
	for _, x := range seen {
		if x == 1 {
			ones++
		}
	}
	if ones != 3 {
		t.Fatalf("expected 3 ones in the vector, got %d", ones)
	}
	if want := []string{"itching", "skin_rash", "nodal_skin_eruptions"}; !reflect.DeepEqual(p.Symptoms, want) {
		t.Errorf("symptoms = %v, want %v", p.Symptoms, want)
	}
	if p.Disease != "Fungal infection" {
		t.Fatalf("disease = %q", p.Disease)
	}
	if p.Description != "Fungal infection is a common skin condition caused by fungi." {
		t.Errorf("description = %q", p.Description)
	}
	if want := []string{"bath twice", "use detol or neem in bathing water", "keep infected area dry", "use clean cloths"}; !reflect.DeepEqual(p.Precautions, want) {
		t.Errorf("precautions = %v", p.Precautions)
	}
	if len(p.Medications) != 5 || p.Medications[0] != "Antifungal Cream" {
		t.Errorf("medications = %v", p.Medications)
	}
	if len(p.Diets) != 5 || len(p.Workouts) != 3 {
		t.Errorf("diets = %v, workouts = %v", p.Diets, p.Workouts)
	}
}

func TestDiagnoseMissingEnrichmentIsNotAnError(t *testing.T) {
	vocab := symptom.DefaultVocabulary()
	acne := int64(symptom.DefaultLabels().IndexOf("Acne"))
	e := newTestEngine(t, classifier.Set{General: classifier.Fixed(vocab.Size(), acne)})

	p, err := e.Diagnose("blackheads")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if p.Disease != "Acne" {
		t.Fatalf("disease = %q", p.Disease)
	}
	if p.Description != "" || p.Precautions == nil || len(p.Precautions) != 0 {
		t.Errorf("expected empty enrichment, got %+v", p.Enrichment)
	}
}

func TestDiagnoseErrors(t *testing.T) {
	e := newTestEngine(t, classifier.Set{})

	for _, raw := range []string{"", "   ", " , ,[]"} {
		if _, err := e.Diagnose(raw); !errors.Is(err, ErrNoSymptoms) {
			t.Errorf("%q: expected ErrNoSymptoms, got %v", raw, err)
		}
	}

	_, err := e.Diagnose("itching, flying")
	var unknown *symptom.UnknownSymptomError
	if !errors.As(err, &unknown) || unknown.Key != "flying" {
		t.Fatalf("expected unknown symptom flying, got %v", err)
	}
	_, again := e.Diagnose("itching, flying")
	if again == nil || again.Error() != err.Error() {
		t.Fatalf("unknown symptom error should repeat: %v vs %v", err, again)
	}
}

func TestDiagnoseAcceptsDatasetSpellings(t *testing.T) {
	e := newTestEngine(t, classifier.Set{})
	p, err := e.Diagnose("dischromic _patches, spotting_ urination")
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	want := []string{"dischromic_patches", "spotting_urination"}
	if !reflect.DeepEqual(p.Symptoms, want) {
		t.Fatalf("symptoms = %v, want %v", p.Symptoms, want)
	}
}

func TestDiagnoseModelFailures(t *testing.T) {
	vocab := symptom.DefaultVocabulary()
	e := newTestEngine(t, classifier.Set{General: classifier.Fixed(vocab.Size(), 999)})
	if _, err := e.Diagnose("itching"); !errors.Is(err, ErrModel) {
		t.Fatalf("out of range class: expected ErrModel, got %v", err)
	}
}

func TestNewEngineRejectsMismatchedModels(t *testing.T) {
	opts := Options{
		Vocabulary: symptom.DefaultVocabulary(),
		Labels:     symptom.DefaultLabels(),
		Tables:     loadTables(t),
		Models:     classifier.Set{General: classifier.Fixed(10, 0)},
	}
	if _, err := NewEngine(opts); !errors.Is(err, classifier.ErrDimension) {
		t.Fatalf("general: expected ErrDimension, got %v", err)
	}

	opts.Models = classifier.Set{General: classifier.Fixed(132, 0), Heart: classifier.Fixed(8, 1)}
	if _, err := NewEngine(opts); !errors.Is(err, classifier.ErrDimension) {
		t.Fatalf("heart: expected ErrDimension, got %v", err)
	}

	opts.Models = classifier.Set{}
	if _, err := NewEngine(opts); err == nil {
		t.Fatal("missing general model should fail")
	}
}

func diabetesValues() map[string]string {
	return map[string]string{
		"age": "45", "pregnancies": "2", "glucose": "120", "bp": "70",
		"skinfold": "30", "insulin": "80", "bmi": "28.5", "pedigree": "0.5",
	}
}

func TestRunTestRoutesClass(t *testing.T) {
	var seen []float64
	diabetes := classifier.Func{N: 8, Fn: func(f []float64) int64 {
		seen = f
		return 0
	}}
	e := newTestEngine(t, classifier.Set{Diabetes: diabetes, Heart: classifier.Fixed(13, 1)})

	out, err := e.RunTest("diabetes", diabetesValues())
	if err != nil {
		t.Fatalf("run test: %v", err)
	}
	if want := []float64{2, 120, 70, 30, 80, 28.5, 0.5, 45}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("model saw %v, want %v", seen, want)
	}
	if out.Diagnosis != clinical.DiabetesPanel.Negative || out.Positive {
		t.Errorf("diagnosis = %q", out.Diagnosis)
	}
	if len(out.Remedies) != len(clinical.DiabetesPanel.Remedies) {
		t.Errorf("remedies = %v", out.Remedies)
	}

	heart := map[string]string{
		"age": "63", "sex": "male", "cp": "3", "trestbps": "145", "chol": "233", "fbs": "1",
		"restecg": "0", "thalach": "150", "exang": "0", "oldpeak": "2.3", "slope": "0", "ca": "0", "thal": "1",
	}
	out, err = e.RunTest("heart", heart)
	if err != nil {
		t.Fatalf("heart: %v", err)
	}
	if out.Diagnosis != clinical.HeartPanel.Positive {
		t.Errorf("heart diagnosis = %q", out.Diagnosis)
	}
}

func TestRunTestErrors(t *testing.T) {
	e := newTestEngine(t, classifier.Set{Diabetes: classifier.Fixed(8, 1)})

	if _, err := e.RunTest("liver", nil); !errors.Is(err, ErrUnknownTest) {
		t.Errorf("expected ErrUnknownTest, got %v", err)
	}
	if _, err := e.RunTest("kidney", nil); !errors.Is(err, classifier.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}

	values := diabetesValues()
	delete(values, "bmi")
	var ve *clinical.ValidationError
	if _, err := e.RunTest("diabetes", values); !errors.As(err, &ve) || ve.Field != "bmi" {
		t.Errorf("expected validation error on bmi, got %v", err)
	}
	if e.Available(clinical.Kidney) || !e.Available(clinical.Diabetes) {
		t.Error("availability does not reflect loaded models")
	}
}
