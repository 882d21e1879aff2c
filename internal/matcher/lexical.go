package matcher

import (
	"github.com/agnivade/levenshtein"

	"github.com/wikisoft/rosterval/internal/schema"
)

// similarity returns a stable [0,1] edit-distance ratio between two raw
// strings, after the same normalization the schema registry applies to
// aliases, so punctuation and casing never depress the score.
func similarity(a, b string) float64 {
	na, nb := schema.Normalize(a), schema.Normalize(b)
	if na == "" && nb == "" {
		return 1
	}
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(dist)/float64(maxLen)
}

// bestLexicalMatch scores header against every candidate's canonical
// name and aliases, returning the best-scoring canonical field name.
func bestLexicalMatch(header string, fields []candidateField) (canonical string, score float64) {
	for _, f := range fields {
		if s := similarity(header, f.canonical); s > score {
			score, canonical = s, f.canonical
		}
		for _, alias := range f.aliases {
			if s := similarity(header, alias); s > score {
				score, canonical = s, f.canonical
			}
		}
	}
	return canonical, score
}

type candidateField struct {
	canonical string
	aliases   []string
}
