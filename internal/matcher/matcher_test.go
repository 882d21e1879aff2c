package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikisoft/rosterval/internal/casestore"
	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/schema"
)

func newTestMatcher() *Matcher {
	return New(casestore.New(), nil, schema.Default())
}

func TestMatch_ExactCanonicalHeaders_ResolveViaLexicalFallback(t *testing.T) {
	m := newTestMatcher()

	set, err := m.Match(context.Background(), []string{"사원번호", "이름"}, domain.SheetActive, Options{})

	require.NoError(t, err)
	require.Len(t, set.Matches, 2)
	assert.Equal(t, "사원번호", set.Matches[0].Target)
	assert.Equal(t, domain.ProvenanceLexicalFallback, set.Matches[0].Provenance)
	assert.Equal(t, "이름", set.Matches[1].Target)
}

func TestMatch_IgnoredKeyword_NeverBoundToAField(t *testing.T) {
	m := newTestMatcher()

	set, err := m.Match(context.Background(), []string{"사원번호", "비고"}, domain.SheetActive, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceIgnored, set.Matches[1].Provenance)
	assert.Empty(t, set.Matches[1].Target)
}

func TestMatch_UnrecognizableHeader_BelowThreshold_IsUnmapped(t *testing.T) {
	m := newTestMatcher()

	set, err := m.Match(context.Background(), []string{"zzz_totally_unknown_xyz"}, domain.SheetActive, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceUnmapped, set.Matches[0].Provenance)
}

func TestMatch_CaseMemoryHit_TakesPriorityOverLexical(t *testing.T) {
	cases := casestore.New()
	cases.Save([]string{"직원고유번호"}, []domain.HeaderMatch{
		{Source: "직원고유번호", Target: "사원번호"},
	}, 0.95, true, nil, nil)
	m := New(cases, nil, schema.Default())

	set, err := m.Match(context.Background(), []string{"직원고유번호"}, domain.SheetActive, Options{})

	require.NoError(t, err)
	require.Len(t, set.Matches, 1)
	assert.Equal(t, "사원번호", set.Matches[0].Target)
	assert.Equal(t, domain.ProvenanceFewShot, set.Matches[0].Provenance)
	assert.Equal(t, caseStoreConfidence, set.Matches[0].Confidence)
}

func TestMatch_MissingRequiredField_AddsWarning(t *testing.T) {
	m := newTestMatcher()

	set, err := m.Match(context.Background(), []string{"zzz_unknown"}, domain.SheetActive, Options{})

	require.NoError(t, err)
	assert.NotEmpty(t, set.Warnings)
}

func TestMatch_NilClient_NeverAttemptsAIPass(t *testing.T) {
	m := newTestMatcher()

	set, err := m.Match(context.Background(), []string{"사원번호"}, domain.SheetActive, Options{})

	require.NoError(t, err)
	assert.False(t, set.UsedAI)
}

func TestOptions_Threshold_DefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, defaultLexicalThreshold, Options{}.threshold())
	assert.Equal(t, 0.9, Options{LexicalThreshold: 0.9}.threshold())
}
