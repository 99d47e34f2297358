package diagnosis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Skufu/SymptomDx/internal/classifier"
	"github.com/Skufu/SymptomDx/internal/clinical"
	"github.com/Skufu/SymptomDx/internal/config"
	"github.com/Skufu/SymptomDx/internal/reference"
	"github.com/Skufu/SymptomDx/internal/symptom"
)

// Optional overrides looked up in the datasets directory.
const (
	VocabularyFile = "symptom_vocabulary.txt"
	TrainingFile   = "Training.csv"
	LabelsFile     = "labels.txt"
)

// Load builds an Engine from the configured datasets and model files.
// Without GENERAL_MODEL the general classifier is the nearest-profile
// model built from the reference symptom table; domain tests without a
// model file stay unavailable.
func Load(cfg *config.Config, logger zerolog.Logger) (*Engine, error) {
	vocab, err := loadVocabulary(cfg.DatasetsDir)
	if err != nil {
		return nil, err
	}
	labels, err := loadLabels(cfg.DatasetsDir)
	if err != nil {
		return nil, err
	}
	tables, err := reference.Load(cfg.DatasetsDir)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("symptoms", vocab.Size()).
		Int("labels", len(labels)).
		Str("datasets", cfg.DatasetsDir).
		Msg("reference data loaded")

	var set classifier.Set
	fail := func(err error) (*Engine, error) {
		set.Close()
		if cfg.HasONNXModels() {
			classifier.ShutdownRuntime()
		}
		return nil, err
	}

	if cfg.HasONNXModels() {
		if err := classifier.InitRuntime(cfg.ORTLibraryPath); err != nil {
			return nil, err
		}
	}

	open := func(name string, dim int) (classifier.Model, error) {
		m, err := classifier.OpenORT(classifier.ORTConfig{
			Path:       cfg.ModelPath(name),
			InputName:  cfg.ModelInputName,
			OutputName: cfg.ModelOutputName,
			Dim:        dim,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("model", m.ID()).Int("features", m.Dim()).Msg("model loaded")
		return m, nil
	}

	if cfg.GeneralModel != "" {
		if set.General, err = open(cfg.GeneralModel, 0); err != nil {
			return fail(err)
		}
	} else {
		nearest, err := classifier.NewNearestProfile(vocab, labels, tables)
		if err != nil {
			return fail(fmt.Errorf("build nearest-profile model: %w", err))
		}
		set.General = nearest
		logger.Info().Msg("no general model configured, using nearest-profile classifier")
	}

	domains := []struct {
		file  string
		panel clinical.Panel
		slot  *classifier.Model
	}{
		{cfg.DiabetesModel, clinical.DiabetesPanel, &set.Diabetes},
		{cfg.HeartModel, clinical.HeartPanel, &set.Heart},
		{cfg.KidneyModel, clinical.KidneyPanel, &set.Kidney},
	}
	for _, d := range domains {
		if d.file == "" {
			logger.Warn().Str("test", string(d.panel.Kind)).Msg("no model configured, test disabled")
			continue
		}
		m, err := open(d.file, 0)
		if err != nil {
			return fail(err)
		}
		*d.slot = m
	}

	engine, err := NewEngine(Options{
		Vocabulary: vocab,
		Labels:     labels,
		Tables:     tables,
		Models:     set,
		Encoder:    clinical.BinaryEncoder{Legacy: cfg.LegacyBinaryEncoding},
	})
	if err != nil {
		return fail(err)
	}
	if cfg.LegacyBinaryEncoding {
		logger.Warn().Msg("legacy binary encoding enabled: sex and yes/no answers are always encoded as 0")
	}
	return engine, nil
}

func loadVocabulary(dir string) (*symptom.Vocabulary, error) {
	for _, name := range []string{VocabularyFile, TrainingFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return symptom.LoadVocabulary(path)
	}
	return symptom.DefaultVocabulary(), nil
}

func loadLabels(dir string) (symptom.Labels, error) {
	path := filepath.Join(dir, LabelsFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return symptom.DefaultLabels(), nil
	}
	return symptom.LoadLabels(path)
}
