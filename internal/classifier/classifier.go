// Package classifier wraps the pre-trained diagnostic models behind a
// single capability: a fixed-width feature vector in, a class index out.
package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrDimension means the vector does not match what the model was
	// trained on. It is a deployment fault, never a user error.
	ErrDimension = errors.New("feature vector dimension mismatch")

	// ErrModelUnavailable is returned for a domain whose model was not
	// configured at start-up.
	ErrModelUnavailable = errors.New("model not loaded")
)

// Model is an opaque, deterministic, side-effect free classifier.
type Model interface {
	// Dim is the expected feature vector length.
	Dim() int
	// Predict returns the class index for one feature vector.
	Predict(features []float64) (int64, error)
}

// CheckDim returns a wrapped ErrDimension when features does not fit m.
func CheckDim(m Model, features []float64) error {
	if want := m.Dim(); want > 0 && len(features) != want {
		return fmt.Errorf("%w: model expects %d features, got %d", ErrDimension, want, len(features))
	}
	return nil
}

// Func adapts a plain function to Model.
type Func struct {
	N  int
	Fn func(features []float64) int64
}

func (f Func) Dim() int { return f.N }

func (f Func) Predict(features []float64) (int64, error) {
	if err := CheckDim(f, features); err != nil {
		return 0, err
	}
	return f.Fn(features), nil
}

// Fixed returns a Model of width n that always predicts class.
func Fixed(n int, class int64) Func {
	return Func{N: n, Fn: func([]float64) int64 { return class }}
}

// Set bundles the models used by the service. Domain models may be nil.
type Set struct {
	General  Model
	Diabetes Model
	Heart    Model
	Kidney   Model
}

// Close releases every model that holds native resources.
func (s *Set) Close() error {
	var errs []error
	for _, m := range []Model{s.General, s.Diabetes, s.Heart, s.Kidney} {
		if c, ok := m.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
