package symptom

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/vocabulary.txt defaults/labels.txt
var defaults embed.FS

// UnknownSymptomError reports a canonical key that is not part of the
// vocabulary the classifier was trained on.
type UnknownSymptomError struct {
	Key string
}

func (e *UnknownSymptomError) Error() string {
	return fmt.Sprintf("symptom not found: %q", e.Key)
}

// Vocabulary maps canonical symptom keys to their feature vector position.
// It is immutable once built.
type Vocabulary struct {
	keys  []string
	index map[string]int
}

// NewVocabulary builds a vocabulary from keys in feature order. Keys are
// canonicalized; duplicates are rejected because they would make two
// positions ambiguous.
func NewVocabulary(keys []string) (*Vocabulary, error) {
	if len(keys) == 0 {
		return nil, errors.New("empty symptom vocabulary")
	}
	v := &Vocabulary{
		keys:  make([]string, 0, len(keys)),
		index: make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		key := Canonical(k)
		if key == "" {
			return nil, fmt.Errorf("blank vocabulary entry at position %d", len(v.keys))
		}
		if _, dup := v.index[key]; dup {
			return nil, fmt.Errorf("duplicate vocabulary entry %q", key)
		}
		v.index[key] = len(v.keys)
		v.keys = append(v.keys, key)
	}
	return v, nil
}

// DefaultVocabulary returns the built-in 132-symptom vocabulary.
func DefaultVocabulary() *Vocabulary {
	data, err := defaults.ReadFile("defaults/vocabulary.txt")
	if err != nil {
		panic(err)
	}
	v, err := NewVocabulary(readLines(bytes.NewReader(data)))
	if err != nil {
		panic(err)
	}
	return v
}

// LoadVocabulary reads a vocabulary file. A .csv file is treated as a
// training set whose header lists the symptom columns (the "prognosis"
// column is skipped); anything else is read as one key per line.
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		header, err := csv.NewReader(f).Read()
		if err != nil {
			return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
		}
		keys := make([]string, 0, len(header))
		for _, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), "prognosis") {
				continue
			}
			keys = append(keys, col)
		}
		return NewVocabulary(keys)
	}
	return NewVocabulary(readLines(f))
}

// Size is the feature vector length.
func (v *Vocabulary) Size() int { return len(v.keys) }

// Keys returns the keys in feature order.
func (v *Vocabulary) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Index returns the feature position of a canonical key.
func (v *Vocabulary) Index(key string) (int, bool) {
	i, ok := v.index[key]
	return i, ok
}

// Vector builds the 0/1 feature vector for the given canonical keys. Every
// key must be known; the first unknown key in input order is reported as an
// *UnknownSymptomError. Repeated keys set the same position once.
func (v *Vocabulary) Vector(keys []string) ([]float64, error) {
	vec := make([]float64, len(v.keys))
	for _, k := range keys {
		i, ok := v.index[k]
		if !ok {
			return nil, &UnknownSymptomError{Key: k}
		}
		vec[i] = 1
	}
	return vec, nil
}

// Present lists the keys whose positions are set in vec, in feature order.
func (v *Vocabulary) Present(vec []float64) []string {
	var out []string
	for i, x := range vec {
		if i >= len(v.keys) {
			break
		}
		if x != 0 {
			out = append(out, v.keys[i])
		}
	}
	return out
}

// Labels maps classifier output indices to disease labels.
type Labels []string

// DefaultLabels returns the built-in 41 disease labels in class order.
func DefaultLabels() Labels {
	data, err := defaults.ReadFile("defaults/labels.txt")
	if err != nil {
		panic(err)
	}
	return Labels(readLines(bytes.NewReader(data)))
}

// LoadLabels reads one label per line in class order.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	labels := readLines(f)
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels in %s", filepath.Base(path))
	}
	return Labels(labels), nil
}

// Label returns the label for a class index.
func (l Labels) Label(class int64) (string, bool) {
	if class < 0 || class >= int64(len(l)) {
		return "", false
	}
	return l[class], true
}

// IndexOf finds the class index of a label, ignoring case and surrounding
// whitespace. It returns -1 when the label is unknown.
func (l Labels) IndexOf(label string) int {
	want := strings.ToLower(strings.TrimSpace(label))
	for i, s := range l {
		if strings.ToLower(strings.TrimSpace(s)) == want {
			return i
		}
	}
	return -1
}

func readLines(r io.Reader) []string {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
