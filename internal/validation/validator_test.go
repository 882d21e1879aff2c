package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/knowledge"
	"github.com/wikisoft/rosterval/internal/schema"
)

func matchesFor(fields ...string) *domain.MatchSet {
	ms := &domain.MatchSet{}
	for _, f := range fields {
		ms.Matches = append(ms.Matches, domain.HeaderMatch{Target: f})
	}
	return ms
}

func TestValidate_SkipAI_RunsL1Only(t *testing.T) {
	matches := matchesFor("사원번호", "이름")
	parsed := &domain.ParsedWorkbook{Rows: []domain.Row{{Number: 2, Cells: []string{"1001", "김철수"}}}}

	bundle, err := Validate(context.Background(), parsed, matches, schema.Default(), knowledge.New(), nil, Options{Sheet: domain.SheetAll, SkipAI: true})

	require.NoError(t, err)
	assert.False(t, bundle.UsedAI)
	assert.Equal(t, domain.Layer2Status(""), bundle.Layer2, "layer2 only runs when diagnostic answers are present")
}

func TestValidate_WithDiagnosticAnswers_RunsLayer2(t *testing.T) {
	matches := matchesFor("종업원구분")
	parsed := &domain.ParsedWorkbook{Rows: []domain.Row{{Number: 2, Cells: []string{"2"}}}}

	bundle, err := Validate(context.Background(), parsed, matches, schema.Default(), knowledge.New(), nil,
		Options{Sheet: domain.SheetActive, DiagnosticAnswers: map[string]any{"q22": 1}, SkipAI: true})

	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Checks)
}

func TestValidate_NilClient_NeverAttemptsAIPass(t *testing.T) {
	matches := matchesFor("사원번호")
	parsed := &domain.ParsedWorkbook{Rows: []domain.Row{{Number: 2, Cells: []string{"1001"}}}}

	bundle, err := Validate(context.Background(), parsed, matches, schema.Default(), knowledge.New(), nil, Options{Sheet: domain.SheetAll})

	require.NoError(t, err)
	assert.False(t, bundle.UsedAI)
}

func TestMergeAIFindings_SameKey_MoreSevereWins(t *testing.T) {
	bundle := &domain.ValidationBundle{
		Warnings: []domain.Finding{{EmpInfo: "1001", Column: "전화번호", Topic: "전화번호|형식", Message: "format looks off", Severity: domain.SeverityWarn}},
	}

	mergeAIFindings(bundle, []domain.Finding{
		{EmpInfo: "1001", Column: "전화번호", Topic: "전화번호|형식", Message: "confirmed invalid by cross-reference", Severity: domain.SeverityError},
	})

	require.Len(t, bundle.Errors, 1)
	assert.Empty(t, bundle.Warnings)
	assert.Contains(t, bundle.Errors[0].Message, "confirmed invalid by cross-reference")
	assert.Contains(t, bundle.Errors[0].Message, "format looks off")
}

func TestMergeAIFindings_DistinctKeys_BothKept(t *testing.T) {
	bundle := &domain.ValidationBundle{}

	mergeAIFindings(bundle, []domain.Finding{
		{EmpInfo: "1001", Column: "전화번호", Topic: "a", Severity: domain.SeverityWarn, Message: "m1"},
		{EmpInfo: "1002", Column: "이메일", Topic: "b", Severity: domain.SeverityError, Message: "m2"},
	})

	assert.Len(t, bundle.Warnings, 1)
	assert.Len(t, bundle.Errors, 1)
}
