package duplicate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wikisoft/rosterval/internal/domain"
)

// matchesFor builds a MatchSet whose Nth match targets field, so
// Row.Get(N) reads that field's column — mirroring how the Header
// Matcher lines matches up positionally with parsed row cells.
func matchesFor(fields ...string) *domain.MatchSet {
	ms := &domain.MatchSet{}
	for _, f := range fields {
		ms.Matches = append(ms.Matches, domain.HeaderMatch{Target: f})
	}
	return ms
}

func row(n int, cells ...string) domain.Row {
	return domain.Row{Number: n, Cells: cells}
}

func TestDetect_ExactDuplicate_SameEmployeeID(t *testing.T) {
	matches := matchesFor("사원번호", "이름", "생년월일")
	rows := []domain.Row{
		row(2, "1001", "김철수", "19900101"),
		row(3, "1001", "김철수", "19900101"),
	}

	groupings := Detect(&domain.ParsedWorkbook{Rows: rows}, matches)

	assert.Len(t, groupings.Exact, 1)
	assert.Equal(t, domain.DuplicateExact, groupings.Exact[0].Kind)
	assert.ElementsMatch(t, []int{2, 3}, groupings.Exact[0].Rows)
	assert.Equal(t, domain.SeverityError, groupings.Exact[0].Severity)
}

func TestDetect_SimilarDuplicate_RequiresDistinctIDs(t *testing.T) {
	matches := matchesFor("사원번호", "이름", "생년월일")
	rows := []domain.Row{
		row(2, "1001", "김철수", "19900101"),
		row(3, "1002", "김철수", "19900101"),
	}

	groupings := Detect(&domain.ParsedWorkbook{Rows: rows}, matches)

	assert.Len(t, groupings.Similar, 1)
	assert.Equal(t, domain.SeverityWarn, groupings.Similar[0].Severity)
	assert.Empty(t, groupings.Exact)
}

func TestDetect_SimilarDuplicate_SkippedWhenSameID(t *testing.T) {
	matches := matchesFor("사원번호", "이름", "생년월일")
	rows := []domain.Row{
		row(2, "1001", "김철수", "19900101"),
		row(3, "1001", "김철수", "19900101"),
	}

	groupings := Detect(&domain.ParsedWorkbook{Rows: rows}, matches)

	assert.Empty(t, groupings.Similar, "a single person's duplicate row is reported once, as exact, not also as similar")
}

func TestDetect_SuspiciousDuplicate_SharedPhoneDistinctIDs(t *testing.T) {
	matches := matchesFor("사원번호", "전화번호")
	rows := []domain.Row{
		row(2, "1001", "010-1111-2222"),
		row(3, "1002", "010-1111-2222"),
	}

	groupings := Detect(&domain.ParsedWorkbook{Rows: rows}, matches)

	assert.Len(t, groupings.Suspicious, 1)
	assert.Equal(t, domain.SeverityInfo, groupings.Suspicious[0].Severity)
}

func TestDetect_NoIDColumn_ExactSkipped(t *testing.T) {
	matches := matchesFor("이름", "생년월일")
	rows := []domain.Row{
		row(2, "김철수", "19900101"),
		row(3, "김철수", "19900101"),
	}

	groupings := Detect(&domain.ParsedWorkbook{Rows: rows}, matches)

	assert.Empty(t, groupings.Exact)
}

func TestDetect_EmptyValuesNeverGroup(t *testing.T) {
	matches := matchesFor("사원번호")
	rows := []domain.Row{
		row(2, ""),
		row(3, ""),
	}

	groupings := Detect(&domain.ParsedWorkbook{Rows: rows}, matches)

	assert.Empty(t, groupings.Exact)
}
