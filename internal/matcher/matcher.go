// Package matcher implements the Header Matcher (C4): case-memory
// lookup, then an advisory LLM pass, then a deterministic lexical
// fallback, merged into exactly one match per input header.
package matcher

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wikisoft/rosterval/internal/casestore"
	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/llm"
	"github.com/wikisoft/rosterval/internal/schema"
)

const (
	caseStoreConfidence   = 0.95
	defaultLexicalThreshold = 0.65
	fewShotExampleCount   = 3
)

var ignoreKeywords = map[string]bool{
	"참고사항": true, "비고": true, "메모": true,
	"note": true, "remark": true, "comment": true, "unnamed": true,
}

// Options tunes one Match call. A Retry Strategy (C12) may widen or
// narrow these between attempts.
type Options struct {
	LexicalThreshold float64 // default 0.65
}

func (o Options) threshold() float64 {
	if o.LexicalThreshold <= 0 {
		return defaultLexicalThreshold
	}
	return o.LexicalThreshold
}

// Matcher binds the Case Store, the optional LLM client, and the
// Standard Schema registry into the C4 algorithm.
type Matcher struct {
	cases  *casestore.Store
	client *llm.Client
	schema *schema.Registry
}

// New constructs a Matcher. client may be nil — the algorithm then
// skips straight from case-memory lookup to the lexical fallback.
func New(cases *casestore.Store, client *llm.Client, reg *schema.Registry) *Matcher {
	return &Matcher{cases: cases, client: client, schema: reg}
}

// Match runs the six-step C4 algorithm for one request's headers.
func (m *Matcher) Match(ctx context.Context, headers []string, sheet domain.Sheet, opts Options) (*domain.MatchSet, error) {
	ignored, active := partition(headers)

	bound := make(map[string]domain.HeaderMatch, len(active))
	var remaining []string

	for _, h := range active {
		cases := m.cases.FindByHeader(h)
		if len(cases) == 0 {
			remaining = append(remaining, h)
			continue
		}
		target := ""
		for _, hm := range cases[0].Matches {
			if hm.Source == h {
				target = hm.Target
				break
			}
		}
		if target == "" {
			remaining = append(remaining, h)
			continue
		}
		bound[h] = domain.HeaderMatch{Source: h, Target: target, Confidence: caseStoreConfidence, Provenance: domain.ProvenanceFewShot}
	}
	usedFewShot := len(bound) > 0

	usedAI := false
	if len(remaining) > 0 && m.client.Available() {
		resolved, err := m.matchWithAI(ctx, remaining, sheet)
		if err != nil {
			log.Warn().Err(err).Msg("header matcher: ai pass failed, falling back to lexical matching")
		} else {
			usedAI = true
			var stillRemaining []string
			for _, h := range remaining {
				if hm, ok := resolved[h]; ok {
					bound[h] = hm
				} else {
					stillRemaining = append(stillRemaining, h)
				}
			}
			remaining = stillRemaining
		}
	}

	if len(remaining) > 0 {
		fields := m.schema.Fields(sheet)
		candidates := make([]candidateField, len(fields))
		for i, f := range fields {
			candidates[i] = candidateField{canonical: f.Canonical, aliases: f.Aliases}
		}
		threshold := opts.threshold()
		for _, h := range remaining {
			canonical, score := bestLexicalMatch(h, candidates)
			if score >= threshold {
				bound[h] = domain.HeaderMatch{Source: h, Target: canonical, Confidence: score, Provenance: domain.ProvenanceLexicalFallback}
			} else {
				bound[h] = domain.HeaderMatch{Source: h, Target: "", Confidence: 0, Provenance: domain.ProvenanceUnmapped}
			}
		}
	}

	matches := make([]domain.HeaderMatch, 0, len(headers))
	for _, h := range headers {
		if ignored[h] {
			matches = append(matches, domain.HeaderMatch{Source: h, Target: "", Confidence: 0, Provenance: domain.ProvenanceIgnored})
			continue
		}
		matches = append(matches, bound[h])
	}

	set := &domain.MatchSet{
		Columns:     len(headers),
		Matches:     matches,
		UsedAI:      usedAI,
		UsedFewShot: usedFewShot,
	}

	targets := set.Targets()
	for _, req := range m.schema.Required(sheet) {
		if !targets[req] {
			set.Warnings = append(set.Warnings, fmt.Sprintf("missing required field: %s", req))
		}
	}

	return set, nil
}

func partition(headers []string) (ignored map[string]bool, active []string) {
	ignored = make(map[string]bool, len(headers))
	for _, h := range headers {
		norm := schema.Normalize(h)
		if norm == "" || ignoreKeywords[norm] {
			ignored[h] = true
			continue
		}
		active = append(active, h)
	}
	return ignored, active
}

func (m *Matcher) matchWithAI(ctx context.Context, headers []string, sheet domain.Sheet) (map[string]domain.HeaderMatch, error) {
	fields := m.schema.Fields(sheet)
	examples := m.cases.FewShot(headers, fewShotExampleCount)

	raw, err := m.client.CompleteJSON(ctx, buildSystemPrompt(), buildUserPrompt(headers, fields, examples))
	if err != nil {
		return nil, err
	}

	resp, err := parseAIResponse(raw)
	if err != nil {
		return nil, err
	}

	validTargets := make(map[string]bool, len(fields))
	for _, f := range fields {
		validTargets[f.Canonical] = true
	}

	out := make(map[string]domain.HeaderMatch, len(headers))
	for _, mp := range resp.Mappings {
		if !validTargets[mp.StandardField] {
			continue
		}
		out[mp.CustomerHeader] = domain.HeaderMatch{
			Source:     mp.CustomerHeader,
			Target:     mp.StandardField,
			Confidence: mp.Confidence,
			Provenance: domain.ProvenanceAI,
		}
	}
	return out, nil
}
