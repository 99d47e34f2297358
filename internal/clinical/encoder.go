package clinical

import "strings"

// BinaryEncoder turns categorical form answers into 0/1 features.
//
// Legacy encodes every sex and yes/no answer as 0, matching records written
// by the earlier web front-end. Leave it off unless results must stay
// comparable with those records.
type BinaryEncoder struct {
	Legacy bool
}

// Sex maps "male" to 1 and anything else to 0.
func (e BinaryEncoder) Sex(v string) float64 {
	return e.match(v, "male")
}

// YesNo maps "yes" to 1 and anything else to 0.
func (e BinaryEncoder) YesNo(v string) float64 {
	return e.match(v, "yes")
}

func (e BinaryEncoder) match(v, want string) float64 {
	if e.Legacy {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(v), want) {
		return 1
	}
	return 0
}
