package classifier

import (
	"fmt"
	"sort"

	"github.com/Skufu/SymptomDx/internal/reference"
	"github.com/Skufu/SymptomDx/internal/symptom"
)

// NearestProfile scores a symptom vector against every disease profile in
// the reference symptom table using weighted Jaccard similarity and returns
// the best class. Ties go to the lowest class index.
type NearestProfile struct {
	dim      int
	weights  []float64
	profiles []profile
}

type profile struct {
	class   int64
	members map[int]struct{}
}

// NewNearestProfile builds the model from the reference profiles. Rows for
// the same disease are merged. Profile symptoms outside the vocabulary are
// ignored; a disease that is not a known label is an error.
func NewNearestProfile(vocab *symptom.Vocabulary, labels symptom.Labels, tables *reference.Tables) (*NearestProfile, error) {
	m := &NearestProfile{dim: vocab.Size(), weights: make([]float64, vocab.Size())}
	for i, key := range vocab.Keys() {
		m.weights[i] = tables.Weight(key)
	}

	byClass := make(map[int64]map[int]struct{})
	for _, p := range tables.Profiles() {
		class := labels.IndexOf(p.Disease)
		if class < 0 {
			return nil, fmt.Errorf("symptom profile for %q: not a known disease label", p.Disease)
		}
		members, ok := byClass[int64(class)]
		if !ok {
			members = make(map[int]struct{})
			byClass[int64(class)] = members
		}
		for _, s := range p.Symptoms {
			if i, ok := vocab.Index(s); ok {
				members[i] = struct{}{}
			}
		}
	}
	if len(byClass) == 0 {
		return nil, fmt.Errorf("no symptom profiles loaded")
	}
	for class, members := range byClass {
		m.profiles = append(m.profiles, profile{class: class, members: members})
	}
	sort.Slice(m.profiles, func(i, j int) bool { return m.profiles[i].class < m.profiles[j].class })
	return m, nil
}

func (m *NearestProfile) Dim() int { return m.dim }

func (m *NearestProfile) Predict(features []float64) (int64, error) {
	if err := CheckDim(m, features); err != nil {
		return 0, err
	}
	best, bestScore := m.profiles[0].class, -1.0
	for _, p := range m.profiles {
		var inter, union float64
		for i, x := range features {
			_, inProfile := p.members[i]
			present := x != 0
			switch {
			case present && inProfile:
				inter += m.weights[i]
				union += m.weights[i]
			case present || inProfile:
				union += m.weights[i]
			}
		}
		score := 0.0
		if union > 0 {
			score = inter / union
		}
		if score > bestScore {
			best, bestScore = p.class, score
		}
	}
	return best, nil
}
