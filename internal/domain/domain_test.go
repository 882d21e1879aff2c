package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheet_Matches_AllAffinityMatchesAnyTarget(t *testing.T) {
	assert.True(t, SheetAll.Matches(SheetActive))
	assert.True(t, SheetAll.Matches(SheetRetired))
}

func TestSheet_Matches_SpecificAffinityOnlyMatchesItself(t *testing.T) {
	assert.True(t, SheetActive.Matches(SheetActive))
	assert.False(t, SheetActive.Matches(SheetRetired))
	assert.False(t, SheetActive.Matches(SheetAll))
}

func TestFinding_MergeKey_CombinesEmpInfoColumnAndTopic(t *testing.T) {
	f := Finding{EmpInfo: "1001", Column: "전화번호", Topic: "전화번호|형식오류"}
	assert.Equal(t, "1001\x1f전화번호\x1f전화번호|형식오류", f.MergeKey())
}

func TestFinding_MergeKey_DistinctForDifferentTopics(t *testing.T) {
	a := Finding{EmpInfo: "1001", Column: "전화번호", Topic: "형식오류"}
	b := Finding{EmpInfo: "1001", Column: "전화번호", Topic: "범위오류"}
	assert.NotEqual(t, a.MergeKey(), b.MergeKey())
}

func TestDuplicateGroupings_All_ConcatenatesExactFirst(t *testing.T) {
	groupings := DuplicateGroupings{
		Exact:      []DuplicateGroup{{Kind: DuplicateExact, Key: "e1"}},
		Similar:    []DuplicateGroup{{Kind: DuplicateSimilar, Key: "s1"}},
		Suspicious: []DuplicateGroup{{Kind: DuplicateSuspicious, Key: "u1"}},
	}

	all := groupings.All()
	assert.Len(t, all, 3)
	assert.Equal(t, DuplicateExact, all[0].Kind)
	assert.Equal(t, DuplicateSimilar, all[1].Kind)
	assert.Equal(t, DuplicateSuspicious, all[2].Kind)
}

func TestDuplicateGroupings_All_EmptyWhenNoGroups(t *testing.T) {
	assert.Empty(t, DuplicateGroupings{}.All())
}

func TestGradeRecommendation_MapsEachGrade(t *testing.T) {
	assert.Equal(t, "auto_complete", GradeRecommendation(GradeA))
	assert.Equal(t, "auto_correct_with_review", GradeRecommendation(GradeB))
	assert.Equal(t, "manual_review", GradeRecommendation(GradeC))
	assert.Equal(t, "full_manual_review", GradeRecommendation(GradeD))
}

func TestGradeRecommendation_UnknownGradeFallsBackToFullManualReview(t *testing.T) {
	assert.Equal(t, "full_manual_review", GradeRecommendation(Grade("Z")))
}
