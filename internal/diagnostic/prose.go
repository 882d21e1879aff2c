package diagnostic

import (
	"fmt"
	"sort"
	"strings"
)

// ToProse renders a completed answer set as a short business-context
// prose fragment for injection into the Layer-AI Validator's prompt.
// Unanswered questions are omitted rather than rendered as "unknown".
func ToProse(answers map[string]any) string {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ids := make([]string, 0, len(answers))
	for id := range answers {
		if _, known := byID[id]; known {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return "No diagnostic answers were provided."
	}

	var b strings.Builder
	b.WriteString("Business context from the diagnostic questionnaire:\n")
	for _, id := range ids {
		q := byID[id]
		b.WriteString(fmt.Sprintf("- %s: %s\n", q.Label, renderAnswer(q, answers[id])))
	}
	return b.String()
}

func renderAnswer(q Question, v any) string {
	if q.Type == TypeYesNo {
		switch t := v.(type) {
		case bool:
			if t {
				return "예"
			}
			return "아니오"
		case string:
			return t
		}
	}
	return fmt.Sprintf("%v", v)
}
