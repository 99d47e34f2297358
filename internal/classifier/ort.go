package classifier

import (
	"errors"
	"fmt"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

// Default tensor names produced by skl2onnx for a classifier exported with
// initial_types=[("float_input", FloatTensorType([None, n]))].
const (
	DefaultInputName  = "float_input"
	DefaultOutputName = "output_label"
)

// InitRuntime loads the ONNX Runtime shared library. It must run once
// before any ORTModel is opened; ShutdownRuntime is its counterpart.
func InitRuntime(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// ShutdownRuntime releases the ONNX Runtime environment.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ORTConfig locates one exported model.
type ORTConfig struct {
	Path       string
	InputName  string
	OutputName string
	// Dim overrides the width read from the model's input shape.
	Dim int
}

// ORTModel runs an ONNX classifier exported with an int64 label output.
type ORTModel struct {
	id      string
	dim     int
	session *ort.DynamicAdvancedSession
}

// OpenORT creates a session for cfg.Path. The feature width comes from the
// model's declared input shape unless cfg.Dim is set.
func OpenORT(cfg ORTConfig) (*ORTModel, error) {
	if cfg.InputName == "" {
		cfg.InputName = DefaultInputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}

	dim := cfg.Dim
	if dim == 0 {
		inputs, _, err := ort.GetInputOutputInfo(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", filepath.Base(cfg.Path), err)
		}
		for _, in := range inputs {
			if in.Name == cfg.InputName && len(in.Dimensions) == 2 && in.Dimensions[1] > 0 {
				dim = int(in.Dimensions[1])
			}
		}
		if dim == 0 {
			return nil, fmt.Errorf("%s: cannot infer width of input %q", filepath.Base(cfg.Path), cfg.InputName)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.Path,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(cfg.Path), err)
	}
	return &ORTModel{id: filepath.Base(cfg.Path), dim: dim, session: session}, nil
}

// ID is the model file name.
func (m *ORTModel) ID() string { return m.id }

func (m *ORTModel) Dim() int { return m.dim }

func (m *ORTModel) Predict(features []float64) (int64, error) {
	if m == nil || m.session == nil {
		return 0, ErrModelUnavailable
	}
	if err := CheckDim(m, features); err != nil {
		return 0, err
	}

	data := make([]float32, len(features))
	for i, x := range features {
		data[i] = float32(x)
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(len(data))), data)
	if err != nil {
		return 0, fmt.Errorf("%s: input tensor: %w", m.id, err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, fmt.Errorf("%s: output tensor: %w", m.id, err)
	}
	defer output.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return 0, fmt.Errorf("%s: run: %w", m.id, err)
	}
	labels := output.GetData()
	if len(labels) == 0 {
		return 0, errors.New(m.id + ": empty label output")
	}
	return labels[0], nil
}

// Close destroys the session.
func (m *ORTModel) Close() error {
	if m == nil || m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
