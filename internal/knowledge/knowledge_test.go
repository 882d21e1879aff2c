package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikisoft/rosterval/internal/domain"
)

func TestAddRule_AndEvaluate(t *testing.T) {
	kb := New()
	id := kb.AddRule("나이", `나이 < 15`, "최저 근로 연령 미만", domain.SeverityError, "연령")
	require.NotEmpty(t, id)

	rules := kb.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, id, rules[0].ID)

	matched, err := kb.Evaluate(rules[0], map[string]any{"나이": 14})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = kb.Evaluate(rules[0], map[string]any{"나이": 30})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluate_MissingVariable_ReturnsFalseNotError(t *testing.T) {
	kb := New()
	rule := Rule{ID: "x", Condition: `없는필드 > 10`}

	matched, err := kb.Evaluate(rule, map[string]any{})

	require.NoError(t, err)
	assert.False(t, matched)
}

func TestLearnFromCorrection_DedupsByFieldAndPrefix(t *testing.T) {
	kb := New()

	kb.LearnFromCorrection("생년월일", "900101", true, "1990-01-01로 해석해야 함", nil)
	kb.LearnFromCorrection("생년월일", "900101", true, "1990-01-01로 해석해야 함", nil)

	exceptions := kb.Exceptions()
	require.Len(t, exceptions, 1)
	assert.Equal(t, 2, exceptions[0].Count)
}

func TestLearnFromCorrection_DistinctInterpretationsDontMerge(t *testing.T) {
	kb := New()

	kb.LearnFromCorrection("생년월일", "900101", true, "1990년생으로 해석", nil)
	kb.LearnFromCorrection("생년월일", "000101", true, "2000년생으로 해석", nil)

	assert.Len(t, kb.Exceptions(), 2)
}

func TestExceptionKey_MatchesInternalDedupKey(t *testing.T) {
	kb := New()
	kb.LearnFromCorrection("field", "orig", false, "interpretation", nil)

	key := ExceptionKey("field", "interpretation")

	found := false
	for _, e := range kb.Exceptions() {
		if e.Field == "field" && e.CorrectInterpretation == "interpretation" {
			found = true
		}
	}
	assert.True(t, found)
	assert.NotEmpty(t, key)
	_, stored := kb.exceptions.Load(key)
	assert.True(t, stored, "LearnFromCorrection stores the exception under ExceptionKey's key")
}
