package matcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wikisoft/rosterval/internal/domain"
)

type aiMapping struct {
	CustomerHeader string  `json:"customer_header"`
	StandardField  string  `json:"standard_field"`
	Confidence     float64 `json:"confidence"`
}

type aiResponse struct {
	Mappings []aiMapping `json:"mappings"`
	Unmapped []string    `json:"unmapped"`
}

func buildSystemPrompt() string {
	return "You map Korean HR spreadsheet column headers onto a fixed set of standard field names. " +
		"Respond with a single JSON object only: " +
		`{"mappings":[{"customer_header":"...","standard_field":"...","confidence":0.0}],"unmapped":["..."]}. ` +
		"Every input header must appear in exactly one of mappings or unmapped. Never invent a standard_field not in the provided list."
}

func buildUserPrompt(headers []string, fields []domain.FieldDescriptor, examples []domain.FewShotExample) string {
	var b strings.Builder

	b.WriteString("Standard fields:\n")
	for _, f := range fields {
		b.WriteString(fmt.Sprintf("- %s (type=%s, required=%t, aliases=%s)\n", f.Canonical, f.Type, f.Required, strings.Join(f.Aliases, ", ")))
	}

	if len(examples) > 0 {
		b.WriteString("\nPrior confirmed mappings (few-shot):\n")
		for _, ex := range examples {
			mapped := make([]string, 0, len(ex.OutputMatches))
			for _, m := range ex.OutputMatches {
				if m.Target == "" {
					continue
				}
				mapped = append(mapped, fmt.Sprintf("%q -> %q", m.Source, m.Target))
			}
			b.WriteString(strings.Join(mapped, "; ") + "\n")
		}
	}

	b.WriteString("\nInput headers to map:\n")
	for _, h := range headers {
		b.WriteString(fmt.Sprintf("- %q\n", h))
	}

	return b.String()
}

func parseAIResponse(raw string) (*aiResponse, error) {
	var resp aiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("matcher: invalid ai response json: %w", err)
	}
	return &resp, nil
}
