// Package symptom turns free-text symptom input into canonical keys and
// fixed-width feature vectors for the general disease classifier.
package symptom

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// artifacts are stripped from both ends of a phrase. They show up when
// symptoms are pasted from list literals such as "['itching', 'skin rash']".
const artifacts = "[]'\" \t\r\n"

// Canonical maps a single symptom phrase to its canonical key:
// "  Nodal Skin Eruptions " becomes "nodal_skin_eruptions". Underscores
// count as spaces, so the dataset spellings "dischromic _patches" and
// "spotting_ urination" fold onto single-underscore keys.
func Canonical(phrase string) string {
	s := norm.NFKC.String(phrase)
	s = strings.Trim(s, artifacts)
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), "_")
}

// Parse splits a comma-separated symptom string and canonicalizes each
// phrase. Empty phrases are dropped; duplicates are kept in input order.
func Parse(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		key := Canonical(p)
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
