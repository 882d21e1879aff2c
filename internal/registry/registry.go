// Package registry implements the Tool Registry (C10): the single
// dispatch surface through which the ReACT Agent invokes every other
// component. Direct imports between components are forbidden — the
// Agent never imports parser, matcher, validation, duplicate or scorer
// directly, only this package.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/wikisoft/rosterval/internal/casestore"
	"github.com/wikisoft/rosterval/internal/domain"
	domerr "github.com/wikisoft/rosterval/internal/domain/errors"
	"github.com/wikisoft/rosterval/internal/duplicate"
	"github.com/wikisoft/rosterval/internal/knowledge"
	"github.com/wikisoft/rosterval/internal/llm"
	"github.com/wikisoft/rosterval/internal/matcher"
	"github.com/wikisoft/rosterval/internal/parser"
	"github.com/wikisoft/rosterval/internal/scorer"
	"github.com/wikisoft/rosterval/internal/schema"
	"github.com/wikisoft/rosterval/internal/validation"
)

// Name identifies one registered tool. The set is closed; Dispatch is
// an exhaustive switch over it rather than a string-keyed kwargs call.
type Name string

const (
	ToolParse               Name = "parse"
	ToolMatch               Name = "match"
	ToolValidate            Name = "validate"
	ToolDetectDuplicates    Name = "detect_duplicates"
	ToolScore               Name = "score"
	ToolDetectAnomalies     Name = "detect_anomalies"
	ToolAddRule             Name = "add_rule"
	ToolLearnFromCorrection Name = "learn_from_correction"
)

// Parameter structs, one per tool, are grouped into a closed union via
// Request rather than passed as an open map[string]any.

type ParseParams struct {
	Data   []byte
	RowCap int
}

type MatchParams struct {
	Headers          []string
	Sheet            domain.Sheet
	LexicalThreshold float64
}

type ValidateParams struct {
	Parsed            *domain.ParsedWorkbook
	Matches           *domain.MatchSet
	Sheet             domain.Sheet
	DiagnosticAnswers map[string]any
	Layer2Tolerance   float64
	SkipAI            bool
}

type DuplicateParams struct {
	Parsed  *domain.ParsedWorkbook
	Matches *domain.MatchSet
}

type ScoreParams struct {
	Parsed *domain.ParsedWorkbook
	Bundle *domain.ValidationBundle
}

type AnomalyParams struct {
	Matches *domain.MatchSet
}

type AddRuleParams struct {
	Field     string
	Condition string
	Message   string
	Severity  domain.Severity
	Category  string
}

type LearnParams struct {
	Field                 string
	OriginalValue         string
	WasError              bool
	CorrectInterpretation string
	DiagnosticContext     map[string]any
}

// Request is the closed union of tool invocations. Exactly one params
// field is populated, matching Name.
type Request struct {
	Name      Name
	Parse     *ParseParams
	Match     *MatchParams
	Validate  *ValidateParams
	Duplicate *DuplicateParams
	Score     *ScoreParams
	Anomaly   *AnomalyParams
	AddRule   *AddRuleParams
	Learn     *LearnParams
}

// Result is the uniform envelope the Agent observes after one Act call.
type Result struct {
	Success bool
	Error   string

	Confidence float64

	Parsed            *domain.ParsedWorkbook
	Matches           *domain.MatchSet
	Validation        *domain.ValidationBundle
	Duplicates        domain.DuplicateGroupings
	ConfidenceRecord  domain.ConfidenceRecord
	Anomaly           domain.AnomalyReport
	RuleID            string
}

type toolEntry struct {
	description string
	params      []string
}

// Deps are the constructed components the Registry dispatches into.
// Every field is a shared, process-wide or request-scoped dependency
// handed in at construction time — never a global.
type Deps struct {
	Schema  *schema.Registry
	Cases   *casestore.Store
	Matcher *matcher.Matcher
	Client  *llm.Client
	KB      *knowledge.Base
}

// Registry is the Tool Registry (C10).
type Registry struct {
	mu      sync.Mutex
	entries map[Name]toolEntry
	deps    Deps
}

// New constructs a Registry with every tool registered. Re-registration
// under an existing name is a construction-time error, never a silent
// override.
func New(deps Deps) (*Registry, error) {
	r := &Registry{entries: make(map[Name]toolEntry), deps: deps}

	catalog := []struct {
		name   Name
		desc   string
		params []string
	}{
		{ToolParse, "decode uploaded workbook bytes into headers and rows", []string{"data", "row_cap"}},
		{ToolMatch, "map input headers onto standard schema fields", []string{"headers", "sheet", "lexical_threshold"}},
		{ToolValidate, "run layer-1/2/AI validation over a parsed workbook", []string{"parsed", "matches", "sheet", "diagnostic_answers", "layer2_tolerance", "skip_ai"}},
		{ToolDetectDuplicates, "run the exact/similar/suspicious duplicate passes", []string{"parsed", "matches"}},
		{ToolScore, "compute the confidence record for a validated workbook", []string{"parsed", "bundle"}},
		{ToolDetectAnomalies, "detect header-match anomalies and recommend a review action", []string{"matches"}},
		{ToolAddRule, "register a new knowledge-base error rule", []string{"field", "condition", "message", "severity", "category"}},
		{ToolLearnFromCorrection, "record a human-corrected exception pattern", []string{"field", "original_value", "was_error", "correct_interpretation", "diagnostic_context"}},
	}

	for _, c := range catalog {
		if err := r.register(c.name, c.desc, c.params); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(name Name, description string, params []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return domerr.NewRegistrationError(string(name), "already registered")
	}
	r.entries[name] = toolEntry{description: description, params: params}
	return nil
}

// Describe returns the description and declared parameter list for a
// registered tool, for observability and prompt construction.
func (r *Registry) Describe(name Name) (description string, params []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[name]
	return e.description, e.params, found
}

// Dispatch invokes one registered tool, returning a uniform Result. A
// request naming an unregistered tool is itself a RegistrationError —
// dispatch never silently no-ops. A cancelled ctx fails the call with
// error "cancelled" before the tool runs.
func (r *Registry) Dispatch(ctx context.Context, req Request) Result {
	r.mu.Lock()
	_, known := r.entries[req.Name]
	r.mu.Unlock()
	if !known {
		return Result{Success: false, Error: domerr.NewRegistrationError(string(req.Name), "not registered").Error()}
	}
	if ctx.Err() != nil {
		return Result{Success: false, Error: "cancelled"}
	}

	switch req.Name {
	case ToolParse:
		return r.dispatchParse(req.Parse)
	case ToolMatch:
		return r.dispatchMatch(ctx, req.Match)
	case ToolValidate:
		return r.dispatchValidate(ctx, req.Validate)
	case ToolDetectDuplicates:
		return r.dispatchDuplicate(req.Duplicate)
	case ToolScore:
		return r.dispatchScore(req.Score)
	case ToolDetectAnomalies:
		return r.dispatchAnomaly(req.Anomaly)
	case ToolAddRule:
		return r.dispatchAddRule(req.AddRule)
	case ToolLearnFromCorrection:
		return r.dispatchLearn(req.Learn)
	default:
		return Result{Success: false, Error: fmt.Sprintf("registry: unhandled tool %q", req.Name)}
	}
}

func (r *Registry) dispatchParse(p *ParseParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: parse params are nil"}
	}
	parsed, err := parser.Parse(p.Data, parser.Options{RowCap: p.RowCap})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Parsed: parsed, Confidence: 1}
}

func (r *Registry) dispatchMatch(ctx context.Context, p *MatchParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: match params are nil"}
	}
	matches, err := r.deps.Matcher.Match(ctx, p.Headers, p.Sheet, matcher.Options{LexicalThreshold: p.LexicalThreshold})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Matches: matches, Confidence: matches.AverageConfidence()}
}

func (r *Registry) dispatchValidate(ctx context.Context, p *ValidateParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: validate params are nil"}
	}
	bundle, err := validation.Validate(ctx, p.Parsed, p.Matches, r.deps.Schema, r.deps.KB, r.deps.Client, validation.Options{
		Sheet:             p.Sheet,
		DiagnosticAnswers: p.DiagnosticAnswers,
		Layer2Tolerance:   p.Layer2Tolerance,
		SkipAI:            p.SkipAI,
	})
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	bundle.Duplicates = duplicate.Detect(p.Parsed, p.Matches)
	for _, g := range bundle.Duplicates.Exact {
		bundle.Errors = append(bundle.Errors, duplicateFindings(g)...)
	}
	for _, g := range bundle.Duplicates.Similar {
		bundle.Warnings = append(bundle.Warnings, duplicateFindings(g)...)
	}

	bundle.Confidence = scorer.Score(p.Parsed, bundle)
	bundle.Anomaly = scorer.DetectAnomalies(p.Matches)
	bundle.Passed = len(bundle.Errors) == 0 && len(bundle.Warnings) == 0 && bundle.Layer2 != domain.Layer2Failed

	confidence := bundle.Confidence.Score
	if bundle.Anomaly.Detected && confidence > 0.8 {
		confidence = 0.8
	}
	return Result{Success: true, Validation: bundle, Confidence: confidence}
}

// duplicateFindings emits one Finding per row in the group, so the
// confidence scorer's distinct-row count reflects every row the
// duplicate spans, not just the first one.
func duplicateFindings(g domain.DuplicateGroup) []domain.Finding {
	findings := make([]domain.Finding, len(g.Rows))
	for i, row := range g.Rows {
		findings[i] = domain.Finding{
			Row: row, EmpInfo: g.Key, Column: "사원번호",
			Severity: g.Severity, Source: domain.SourceLayer1,
			Message: fmt.Sprintf("%s duplicate group across rows %v", g.Kind, g.Rows),
			Topic:   "중복|" + string(g.Kind),
		}
	}
	return findings
}

func (r *Registry) dispatchDuplicate(p *DuplicateParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: duplicate params are nil"}
	}
	groups := duplicate.Detect(p.Parsed, p.Matches)
	return Result{Success: true, Duplicates: groups, Confidence: 1}
}

func (r *Registry) dispatchScore(p *ScoreParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: score params are nil"}
	}
	record := scorer.Score(p.Parsed, p.Bundle)
	return Result{Success: true, ConfidenceRecord: record, Confidence: record.Score}
}

func (r *Registry) dispatchAnomaly(p *AnomalyParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: anomaly params are nil"}
	}
	report := scorer.DetectAnomalies(p.Matches)
	return Result{Success: true, Anomaly: report, Confidence: 1}
}

func (r *Registry) dispatchAddRule(p *AddRuleParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: add_rule params are nil"}
	}
	id := r.deps.KB.AddRule(p.Field, p.Condition, p.Message, p.Severity, p.Category)
	return Result{Success: true, RuleID: id, Confidence: 1}
}

func (r *Registry) dispatchLearn(p *LearnParams) Result {
	if p == nil {
		return Result{Success: false, Error: "registry: learn params are nil"}
	}
	r.deps.KB.LearnFromCorrection(p.Field, p.OriginalValue, p.WasError, p.CorrectInterpretation, p.DiagnosticContext)
	return Result{Success: true, Confidence: 1}
}
