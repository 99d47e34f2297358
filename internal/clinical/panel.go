// Package clinical defines the structured lab-style tests (diabetes, heart,
// kidney): the ordered clinical fields each classifier was trained on, how
// submitted form values become a feature vector, and how the binary class
// is reported back.
package clinical

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind names a domain test.
type Kind string

const (
	Diabetes Kind = "diabetes"
	Heart    Kind = "heart"
	Kidney   Kind = "kidney"
)

// ErrUnknownKind is returned by Lookup for a kind without a panel.
var ErrUnknownKind = errors.New("unknown test kind")

// Encoding selects how a raw form value becomes a feature.
type Encoding int

const (
	Numeric Encoding = iota
	Sex
	YesNo
)

// Field is one classifier input, in training order.
type Field struct {
	Name     string
	Aliases  []string
	Encoding Encoding
	// Default replaces a missing or blank value. Empty means required.
	Default string
}

// ValidationError names the field that could not be turned into a feature.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Panel describes one domain test.
type Panel struct {
	Kind     Kind
	Title    string
	Fields   []Field
	Positive string
	Negative string
	Remedies []string
	// IsPositive interprets the classifier's class.
	IsPositive func(class int64) bool
}

// Dim is the feature vector length.
func (p Panel) Dim() int { return len(p.Fields) }

// FieldNames lists the canonical field names in vector order.
func (p Panel) FieldNames() []string {
	out := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		out[i] = f.Name
	}
	return out
}

// Assemble coerces submitted values into the vector the classifier expects,
// in the panel's declared field order. Field names and aliases match
// case-insensitively.
func (p Panel) Assemble(values map[string]string, enc BinaryEncoder) ([]float64, error) {
	folded := make(map[string]string, len(values))
	for k, v := range values {
		folded[strings.ToLower(strings.TrimSpace(k))] = v
	}

	vec := make([]float64, 0, len(p.Fields))
	for _, f := range p.Fields {
		raw := strings.TrimSpace(f.lookup(folded))
		if raw == "" {
			if f.Default == "" {
				return nil, &ValidationError{Field: f.Name, Reason: "value is required"}
			}
			raw = f.Default
		}
		switch f.Encoding {
		case Sex:
			vec = append(vec, enc.Sex(raw))
		case YesNo:
			vec = append(vec, enc.YesNo(raw))
		default:
			x, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("%q is not a number", raw)}
			}
			vec = append(vec, x)
		}
	}
	return vec, nil
}

// Outcome maps a class to the diagnosis sentence.
func (p Panel) Outcome(class int64) string {
	if p.IsPositive(class) {
		return p.Positive
	}
	return p.Negative
}

func (f Field) lookup(values map[string]string) string {
	if v, ok := values[f.Name]; ok {
		return v
	}
	for _, a := range f.Aliases {
		if v, ok := values[strings.ToLower(a)]; ok {
			return v
		}
	}
	return ""
}

// Lookup returns the panel for a kind.
func Lookup(kind string) (Panel, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case Diabetes:
		return DiabetesPanel, nil
	case Heart:
		return HeartPanel, nil
	case Kidney:
		return KidneyPanel, nil
	}
	return Panel{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Kinds lists every supported test.
func Kinds() []Kind { return []Kind{Diabetes, Heart, Kidney} }
