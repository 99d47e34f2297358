// Package reference holds the static disease tables used to enrich a
// predicted label: descriptions, precautions, medications, diets, workouts,
// the per-disease symptom profiles and the symptom weight matrix.
//
// Tables are loaded once at start-up and never mutated afterwards, so a
// single *Tables can be shared by every request handler without locking.
package reference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Skufu/SymptomDx/internal/symptom"
)

// File names inside the datasets directory.
const (
	DescriptionFile = "description.csv"
	PrecautionFile  = "precautions_df.csv"
	MedicationFile  = "medications.csv"
	DietFile        = "diets.csv"
	WorkoutFile     = "workout_df.csv"
	SymptomFile     = "symtoms_df.csv"
	SeverityFile    = "Symptom-severity.csv"
)

// Enrichment is the supplementary display data for one disease label.
type Enrichment struct {
	Description string   `json:"description"`
	Precautions []string `json:"precautions"`
	Medications []string `json:"medications"`
	Diets       []string `json:"diets"`
	Workouts    []string `json:"workouts"`
}

// Profile is the symptom list recorded for a disease in the symptom table.
type Profile struct {
	Disease  string
	Symptoms []string
}

// Tables is the immutable in-memory copy of the reference files.
type Tables struct {
	descriptions map[string]string
	precautions  map[string][]string
	medications  map[string][]string
	diets        map[string][]string
	workouts     map[string][]string
	profiles     []Profile
	weights      map[string]float64
}

// Load reads every reference file from dir. The severity table is optional;
// all others are required.
func Load(dir string) (*Tables, error) {
	t := &Tables{}
	var err error

	if t.descriptions, err = loadDescriptions(filepath.Join(dir, DescriptionFile)); err != nil {
		return nil, err
	}
	if t.precautions, err = loadPrecautions(filepath.Join(dir, PrecautionFile)); err != nil {
		return nil, err
	}
	if t.medications, err = loadListColumn(filepath.Join(dir, MedicationFile), "medication"); err != nil {
		return nil, err
	}
	if t.diets, err = loadListColumn(filepath.Join(dir, DietFile), "diet"); err != nil {
		return nil, err
	}
	if t.workouts, err = loadListColumn(filepath.Join(dir, WorkoutFile), "workout"); err != nil {
		return nil, err
	}
	if t.profiles, err = loadProfiles(filepath.Join(dir, SymptomFile)); err != nil {
		return nil, err
	}
	t.weights, err = loadWeights(filepath.Join(dir, SeverityFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return t, nil
}

// Enrich joins a label against the tables. An unknown label yields empty
// collections rather than an error.
func (t *Tables) Enrich(label string) Enrichment {
	key := foldKey(label)
	return Enrichment{
		Description: t.descriptions[key],
		Precautions: cloneOrEmpty(t.precautions[key]),
		Medications: cloneOrEmpty(t.medications[key]),
		Diets:       cloneOrEmpty(t.diets[key]),
		Workouts:    cloneOrEmpty(t.workouts[key]),
	}
}

// Has reports whether the description table knows the label.
func (t *Tables) Has(label string) bool {
	_, ok := t.descriptions[foldKey(label)]
	return ok
}

// Profiles returns the disease symptom profiles in file order.
func (t *Tables) Profiles() []Profile {
	out := make([]Profile, len(t.profiles))
	for i, p := range t.profiles {
		out[i] = Profile{Disease: p.Disease, Symptoms: cloneOrEmpty(p.Symptoms)}
	}
	return out
}

// Weight returns the severity weight of a canonical symptom key, 1 when the
// weight matrix does not list it.
func (t *Tables) Weight(key string) float64 {
	if w, ok := t.weights[key]; ok && w > 0 {
		return w
	}
	return 1
}

func loadDescriptions(path string) (map[string]string, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, err
	}
	disease, err := tbl.column("disease")
	if err != nil {
		return nil, err
	}
	desc, err := tbl.column("description")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(tbl.rows))
	for _, row := range tbl.rows {
		key := foldKey(cell(row, disease))
		if key == "" {
			continue
		}
		text := cell(row, desc)
		if prev, ok := out[key]; ok && prev != "" {
			text = prev + " " + text
		}
		out[key] = text
	}
	return out, nil
}

// loadPrecautions keeps the first row per disease: the Precaution_N columns
// in order, blanks removed.
func loadPrecautions(path string) (map[string][]string, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, err
	}
	disease, err := tbl.column("disease")
	if err != nil {
		return nil, err
	}
	cols := tbl.numbered("precaution_")
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: no Precaution_N columns", filepath.Base(path))
	}
	out := make(map[string][]string, len(tbl.rows))
	for _, row := range tbl.rows {
		key := foldKey(cell(row, disease))
		if key == "" {
			continue
		}
		if _, seen := out[key]; seen {
			continue
		}
		items := make([]string, 0, len(cols))
		for _, c := range cols {
			if v := cell(row, c); v != "" {
				items = append(items, v)
			}
		}
		out[key] = items
	}
	return out, nil
}

// loadListColumn collects one list per disease. Rows for the same disease
// are concatenated in file order and list-literal cells are expanded.
func loadListColumn(path, column string) (map[string][]string, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, err
	}
	disease, err := tbl.column("disease")
	if err != nil {
		return nil, err
	}
	col, err := tbl.column(column)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(tbl.rows))
	for _, row := range tbl.rows {
		key := foldKey(cell(row, disease))
		if key == "" {
			continue
		}
		out[key] = append(out[key], splitListLiteral(cell(row, col))...)
	}
	return out, nil
}

func loadProfiles(path string) ([]Profile, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, err
	}
	disease, err := tbl.column("disease")
	if err != nil {
		return nil, err
	}
	cols := tbl.numbered("symptom_")
	if len(cols) == 0 {
		return nil, fmt.Errorf("%s: no Symptom_N columns", filepath.Base(path))
	}
	var out []Profile
	for _, row := range tbl.rows {
		name := strings.TrimSpace(cell(row, disease))
		if name == "" {
			continue
		}
		p := Profile{Disease: name}
		for _, c := range cols {
			if v := symptom.Canonical(cell(row, c)); v != "" {
				p.Symptoms = append(p.Symptoms, v)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func loadWeights(path string) (map[string]float64, error) {
	tbl, err := readTable(path)
	if err != nil {
		return nil, err
	}
	sym, err := tbl.column("symptom")
	if err != nil {
		return nil, err
	}
	wcol, err := tbl.column("weight")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(tbl.rows))
	for i, row := range tbl.rows {
		key := symptom.Canonical(cell(row, sym))
		if key == "" {
			continue
		}
		w, err := strconv.ParseFloat(cell(row, wcol), 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: weight: %w", filepath.Base(path), i+2, err)
		}
		out[key] = w
	}
	return out, nil
}

// splitListLiteral expands "['Antifungal Cream', 'Fluconazole']" into its
// items. A plain cell is returned as a single item; blanks are dropped.
func splitListLiteral(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return []string{s}
	}
	body := s[1 : len(s)-1]
	var (
		items []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		if v := strings.Trim(strings.TrimSpace(cur.String()), `'"`); v != "" {
			items = append(items, v)
		}
		cur.Reset()
	}
	for _, r := range body {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		case quote == 0 && r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return items
}

func foldKey(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

func cloneOrEmpty(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
