// Package layer2 implements the Layer-2 Validator (C6): reconciling
// diagnostic numeric answers against aggregates computed from the
// validated rows.
package layer2

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/wikisoft/rosterval/internal/domain"
)

const defaultTolerancePercent = 5.0

// compositeQuestionIDs are the optional extra headcount answers that
// feed the auto-derived "total retirees" composite. They sit outside
// the 13-question closed set and are only consulted when all three are
// present in the answers map.
var compositeQuestionIDs = []string{"q24", "q25", "q26"}

const compositeExpression = "q24 + q25 + q26"

// Options tunes one Reconcile call.
type Options struct {
	TolerancePercent float64 // default 5
}

func (o Options) tolerance() float64 {
	if o.TolerancePercent <= 0 {
		return defaultTolerancePercent
	}
	return o.TolerancePercent
}

// Reconcile compares diagnostic answers against data-derived aggregates
// and rolls the individual checks up into a Layer2Status.
func Reconcile(answers map[string]any, parsed *domain.ParsedWorkbook, matches *domain.MatchSet, sheet domain.Sheet, opts Options) ([]domain.Layer2Check, domain.Layer2Status) {
	idx := targetIndex(matches)
	counts, computable := countEmployeeClasses(parsed.Rows, idx)

	var checks []domain.Layer2Check

	checks = append(checks, reconcileOne("q21", "임원 수", answers, aggregateOrNaN(counts.executives, computable), opts.tolerance())...)
	checks = append(checks, reconcileOne("q22", "정규직 수", answers, aggregateOrNaN(counts.regular, computable), opts.tolerance())...)
	checks = append(checks, reconcileOne("q23", "계약직 수", answers, aggregateOrNaN(counts.contractors, computable), opts.tolerance())...)

	if compositeCheck, ok := reconcileComposite(answers, sheet, len(parsed.Rows), opts.tolerance()); ok {
		checks = append(checks, compositeCheck)
	}

	return checks, rollup(checks)
}

func reconcileOne(questionID, label string, answers map[string]any, calculated, tolerance float64) []domain.Layer2Check {
	raw, present := answers[questionID]
	if !present {
		return nil
	}

	userInput, numeric := toFloat(raw)
	if !numeric {
		return []domain.Layer2Check{{
			QuestionID: questionID, Label: label,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("answer for %s is not numeric", questionID),
		}}
	}

	return []domain.Layer2Check{classify(questionID, label, userInput, calculated, tolerance)}
}

func reconcileComposite(answers map[string]any, sheet domain.Sheet, totalRows int, tolerance float64) (domain.Layer2Check, bool) {
	if sheet != domain.SheetRetired {
		return domain.Layer2Check{}, false
	}

	present := 0
	env := make(map[string]any, len(compositeQuestionIDs))
	for _, id := range compositeQuestionIDs {
		if v, ok := answers[id]; ok {
			if f, numeric := toFloat(v); numeric {
				env[id] = f
				present++
				continue
			}
		}
		env[id] = 0.0
	}
	if present == 0 {
		return domain.Layer2Check{}, false
	}
	if present < len(compositeQuestionIDs) {
		return domain.Layer2Check{
			QuestionID: "퇴직자전체", Label: "퇴직자 전체 인원",
			Severity: domain.SeverityInfo, Skipped: true,
			SkippedReason: "composite answers (q24/q25/q26) are only partially present",
			Message:       "퇴직자 전체 인원 composite check skipped: partial answers",
		}, true
	}

	result, err := expr.Eval(compositeExpression, env)
	if err != nil {
		return domain.Layer2Check{}, false
	}
	userInput, _ := toFloat(result)

	return classify("퇴직자전체", "퇴직자 전체 인원", userInput, float64(totalRows), tolerance), true
}

// infiniteDiffPercent stands in for an unboundedly large discrepancy
// when the data-derived aggregate is genuinely zero but the user
// expects a nonzero count — dividing by a true zero would produce
// +Inf, which json.Marshal rejects, so the ratio is clamped instead of
// computed.
const infiniteDiffPercent = 1e9

func classify(questionID, label string, userInput, calculated, tolerance float64) domain.Layer2Check {
	check := domain.Layer2Check{QuestionID: questionID, Label: label, UserInput: userInput, Calculated: calculated}

	if math.IsNaN(calculated) {
		check.Calculated = 0
		check.Severity = domain.SeverityInfo
		check.Message = fmt.Sprintf("%s: expected aggregate could not be computed", label)
		return check
	}

	if calculated == 0 {
		if userInput == 0 {
			check.DiffPercent = 0
			return check
		}
		check.DiffPercent = infiniteDiffPercent
		check.Severity = domain.SeverityWarn
		check.Message = fmt.Sprintf("%s: calculated=0, user_input=%.0f, diff=infinite", label, userInput)
		return check
	}

	diff := math.Abs(userInput-calculated) / calculated * 100
	check.DiffPercent = diff

	switch {
	case diff < 0.01:
		return check
	case diff <= tolerance:
		check.Severity = domain.SeverityInfo
		check.Message = fmt.Sprintf("%s: within tolerance (diff=%.2f%%)", label, diff)
	default:
		check.Severity = domain.SeverityWarn
		check.Message = fmt.Sprintf("%s: calculated=%.0f, user_input=%.0f, diff=%.2f%%", label, calculated, userInput, diff)
	}
	return check
}

func rollup(checks []domain.Layer2Check) domain.Layer2Status {
	hasHigh := false
	hasAdvisory := false
	for _, c := range checks {
		switch c.Severity {
		case domain.SeverityWarn:
			hasHigh = true
		case domain.SeverityInfo:
			hasAdvisory = true
		}
	}
	switch {
	case hasHigh:
		return domain.Layer2Failed
	case hasAdvisory:
		return domain.Layer2Warned
	default:
		return domain.Layer2Passed
	}
}

type classCounts struct {
	executives, regular, contractors int
}

var executiveValues = map[string]bool{"1": true, "임원": true}
var regularValues = map[string]bool{"2": true, "직원": true}
var contractorValues = map[string]bool{"3": true, "계약직": true}

// countEmployeeClasses tallies rows by employee class. The bool return
// distinguishes "column not mapped, aggregate can't be computed at
// all" from a mapped column that genuinely tallies to zero.
func countEmployeeClasses(rows []domain.Row, idx map[string]int) (classCounts, bool) {
	i, ok := idx["종업원구분"]
	if !ok {
		return classCounts{}, false
	}
	var counts classCounts
	for _, row := range rows {
		v := strings.TrimSpace(row.Get(i))
		switch {
		case executiveValues[v]:
			counts.executives++
		case regularValues[v]:
			counts.regular++
		case contractorValues[v]:
			counts.contractors++
		}
	}
	return counts, true
}

func aggregateOrNaN(count int, computable bool) float64 {
	if !computable {
		return math.NaN()
	}
	return float64(count)
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

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
