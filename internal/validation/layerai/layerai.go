// Package layerai implements the Layer-AI Validator (C7): an optional
// context-aware anomaly review invoked after Layer-1, consulting the
// Knowledge Base and the diagnostic questionnaire's business context.
package layerai

import (
	"context"
	"fmt"

	"github.com/wikisoft/rosterval/internal/diagnostic"
	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/knowledge"
	"github.com/wikisoft/rosterval/internal/llm"
)

// Result is this layer's output before the Validator façade merges it
// with Layer-1 findings.
type Result struct {
	Findings  []domain.Finding
	Reasoning []string
	Used      bool
}

// Validate reviews the parsed workbook for anomalies the rule-based
// Layer-1 validator cannot express, using the current Knowledge Base
// rules and the diagnostic answers as business context. If client is
// unavailable, it returns a zero Result rather than an error — this
// layer is optional per request.
func Validate(ctx context.Context, parsed *domain.ParsedWorkbook, matches *domain.MatchSet, answers map[string]any, kb *knowledge.Base, client *llm.Client) (Result, error) {
	if client == nil || !client.Available() {
		return Result{}, nil
	}

	idx := targetIndex(matches)
	d := buildDigest(parsed, idx)
	prose := diagnostic.ToProse(answers)

	systemPrompt := buildSystemPrompt()
	userPrompt := buildUserPrompt(prose, kb.Rules(), d)

	raw, err := client.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Result{}, fmt.Errorf("layerai: validate: %w", err)
	}

	parsedResp, err := parseAIResponse(raw)
	if err != nil {
		return Result{}, err
	}

	findings := make([]domain.Finding, 0, len(parsedResp.Findings))
	for _, f := range parsedResp.Findings {
		severity, ok := toSeverity(f.Severity)
		if !ok {
			continue
		}
		findings = append(findings, domain.Finding{
			Row: f.Row, EmpInfo: f.EmpInfo, Column: f.Column,
			Severity: severity, Message: f.Message, Source: domain.SourceAI,
			Topic: f.Topic,
		})
	}

	return Result{Findings: findings, Reasoning: parsedResp.Reasoning, Used: true}, nil
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
