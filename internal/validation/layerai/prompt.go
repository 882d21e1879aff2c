package layerai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/knowledge"
)

type aiFinding struct {
	Row      int    `json:"row"`
	EmpInfo  string `json:"emp_info"`
	Column   string `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Topic    string `json:"topic"`
}

type aiResponse struct {
	Findings  []aiFinding `json:"findings"`
	Reasoning []string    `json:"reasoning"`
}

func buildSystemPrompt() string {
	return "You review a Korean HR retirement-benefit roster for anomalies a rule engine would miss. " +
		"Use the supplied business context, known error rules, and field statistics to decide whether each anomaly is an error or a warning. " +
		"Respond with a single JSON object only: " +
		`{"findings":[{"row":0,"emp_info":"...","column":"...","severity":"error|warning","message":"...","topic":"..."}],"reasoning":["..."]}. ` +
		"row is the 1-based spreadsheet row number (header row = 1). topic is a short canonical token such as 기준급여:최저임금|미달. " +
		"Only report genuine anomalies; do not restate rows that look normal."
}

func buildUserPrompt(prose string, rules []knowledge.Rule, d digest) string {
	var b strings.Builder

	b.WriteString(prose)
	b.WriteString("\n\n")

	if len(rules) > 0 {
		b.WriteString("Known error rules:\n")
		for _, r := range rules {
			fmt.Fprintf(&b, "- [%s] %s (field=%s, severity=%s, condition=%s)\n", r.Category, r.Message, r.Field, r.Severity, r.Condition)
		}
		b.WriteString("\n")
	}

	b.WriteString("Data summary:\n")
	b.WriteString(d.render())

	return b.String()
}

func parseAIResponse(raw string) (*aiResponse, error) {
	var resp aiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("layerai: invalid ai response json: %w", err)
	}
	return &resp, nil
}

func toSeverity(s string) (domain.Severity, bool) {
	switch domain.Severity(s) {
	case domain.SeverityError:
		return domain.SeverityError, true
	case domain.SeverityWarn:
		return domain.SeverityWarn, true
	case domain.SeverityInfo:
		return domain.SeverityInfo, true
	default:
		return "", false
	}
}
