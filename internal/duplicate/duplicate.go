// Package duplicate implements the Duplicate Detector (C8): three
// independent groupBy passes over the parsed rows.
package duplicate

import (
	"sort"
	"strings"

	"github.com/wikisoft/rosterval/internal/domain"
)

// Detect runs the exact/similar/suspicious passes over parsed using the
// match set to locate the relevant canonical columns.
func Detect(parsed *domain.ParsedWorkbook, matches *domain.MatchSet) domain.DuplicateGroupings {
	idx := targetIndex(matches)

	return domain.DuplicateGroupings{
		Exact:      detectExact(parsed.Rows, idx),
		Similar:    detectSimilar(parsed.Rows, idx),
		Suspicious: detectSuspicious(parsed.Rows, idx),
	}
}

func detectExact(rows []domain.Row, idx map[string]int) []domain.DuplicateGroup {
	i, ok := idx["사원번호"]
	if !ok {
		return nil
	}
	groups := groupBy(rows, func(r domain.Row) (string, bool) {
		v := strings.TrimSpace(r.Get(i))
		return v, v != ""
	})
	return toGroups(groups, domain.DuplicateExact, domain.SeverityError)
}

func detectSimilar(rows []domain.Row, idx map[string]int) []domain.DuplicateGroup {
	nameIdx, nameOK := idx["이름"]
	birthIdx, birthOK := idx["생년월일"]
	idIdx, idOK := idx["사원번호"]
	if !nameOK || !birthOK {
		return nil
	}

	groups := groupBy(rows, func(r domain.Row) (string, bool) {
		name := strings.TrimSpace(r.Get(nameIdx))
		birth := strings.TrimSpace(r.Get(birthIdx))
		if name == "" || birth == "" {
			return "", false
		}
		return name + "\x1f" + birth, true
	})

	var out []domain.DuplicateGroup
	for key, rowNumbers := range groups {
		if len(rowNumbers) < 2 {
			continue
		}
		if idOK && !multipleDistinctIDs(rows, rowNumbers, idIdx) {
			continue
		}
		out = append(out, domain.DuplicateGroup{Kind: domain.DuplicateSimilar, Key: key, Rows: rowNumbers, Severity: domain.SeverityWarn})
	}
	sortGroups(out)
	return out
}

func detectSuspicious(rows []domain.Row, idx map[string]int) []domain.DuplicateGroup {
	var out []domain.DuplicateGroup
	idIdx, idOK := idx["사원번호"]

	if phoneIdx, ok := idx["전화번호"]; ok {
		out = append(out, suspiciousPass(rows, phoneIdx, idIdx, idOK)...)
	}
	if emailIdx, ok := idx["이메일"]; ok {
		out = append(out, suspiciousPass(rows, emailIdx, idIdx, idOK)...)
	}
	sortGroups(out)
	return out
}

func suspiciousPass(rows []domain.Row, fieldIdx, idIdx int, idOK bool) []domain.DuplicateGroup {
	groups := groupBy(rows, func(r domain.Row) (string, bool) {
		v := strings.TrimSpace(r.Get(fieldIdx))
		return v, v != ""
	})

	var out []domain.DuplicateGroup
	for key, rowNumbers := range groups {
		if len(rowNumbers) < 2 {
			continue
		}
		if idOK && !multipleDistinctIDs(rows, rowNumbers, idIdx) {
			continue // all ids identical: a legitimate single person, not suspicious
		}
		out = append(out, domain.DuplicateGroup{Kind: domain.DuplicateSuspicious, Key: key, Rows: rowNumbers, Severity: domain.SeverityInfo})
	}
	return out
}

// groupBy maps each row's key (when present) to the 1-based row numbers
// sharing it, preserving row order within each group.
func groupBy(rows []domain.Row, key func(domain.Row) (string, bool)) map[string][]int {
	groups := make(map[string][]int)
	rowByNumber := make(map[int]domain.Row, len(rows))
	for _, r := range rows {
		rowByNumber[r.Number] = r
	}
	for _, r := range rows {
		k, ok := key(r)
		if !ok {
			continue
		}
		groups[k] = append(groups[k], r.Number)
	}
	return groups
}

func multipleDistinctIDs(rows []domain.Row, rowNumbers []int, idIdx int) bool {
	byNumber := make(map[int]domain.Row, len(rows))
	for _, r := range rows {
		byNumber[r.Number] = r
	}
	ids := make(map[string]bool)
	for _, n := range rowNumbers {
		ids[strings.TrimSpace(byNumber[n].Get(idIdx))] = true
	}
	return len(ids) > 1
}

func toGroups(groups map[string][]int, kind domain.DuplicateKind, severity domain.Severity) []domain.DuplicateGroup {
	var out []domain.DuplicateGroup
	for key, rowNumbers := range groups {
		if len(rowNumbers) < 2 {
			continue
		}
		out = append(out, domain.DuplicateGroup{Kind: kind, Key: key, Rows: rowNumbers, Severity: severity})
	}
	sortGroups(out)
	return out
}

func sortGroups(groups []domain.DuplicateGroup) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
}

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
