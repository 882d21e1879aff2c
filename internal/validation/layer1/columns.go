package layer1

import "github.com/wikisoft/rosterval/internal/domain"

// targetIndex maps a canonical field name to its column position,
// first occurrence wins if a match set ever binds two headers to the
// same target.
func targetIndex(matches *domain.MatchSet) map[string]int {
	idx := make(map[string]int, len(matches.Matches))
	for i, hm := range matches.Matches {
		if hm.Target == "" {
			continue
		}
		if _, exists := idx[hm.Target]; !exists {
			idx[hm.Target] = i
		}
	}
	return idx
}

func cell(row domain.Row, idx map[string]int, canonical string) (string, bool) {
	i, ok := idx[canonical]
	if !ok {
		return "", false
	}
	v := row.Get(i)
	return v, v != ""
}
