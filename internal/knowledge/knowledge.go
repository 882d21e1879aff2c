// Package knowledge implements the Knowledge Base (C13): a persisted
// set of error rules the AI Validator consults, plus learned exception
// patterns distilled from human corrections.
package knowledge

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/wikisoft/rosterval/internal/domain"
)

// Rule is one AI-Validator-consulted error rule. Condition is an
// expr-lang boolean expression evaluated against a row's field values.
type Rule struct {
	ID        string
	Field     string
	Condition string
	Message   string
	Severity  domain.Severity
	Category  string
}

// LearnedException is one human-corrected pattern, deduplicated by
// (field, first 30 chars of interpretation) so the same lesson isn't
// relearned across sessions.
type LearnedException struct {
	Field                 string
	OriginalValue         string
	WasError              bool
	CorrectInterpretation string
	DiagnosticContext     map[string]any
	Count                 int
}

// Base is the Knowledge Base's in-process implementation.
type Base struct {
	mu sync.Mutex

	rules      *xsync.MapOf[string, Rule]
	exceptions *xsync.MapOf[string, LearnedException]
	evaluator  *conditionEvaluator
}

// New constructs an empty Knowledge Base.
func New() *Base {
	return &Base{
		rules:      xsync.NewMapOf[string, Rule](),
		exceptions: xsync.NewMapOf[string, LearnedException](),
		evaluator:  newConditionEvaluator(),
	}
}

// Rules returns the active rule set, in no particular order — callers
// needing stable ordering (e.g. prompt injection) should sort by ID.
func (b *Base) Rules() []Rule {
	var out []Rule
	b.rules.Range(func(_ string, r Rule) bool {
		out = append(out, r)
		return true
	})
	return out
}

// AddRule registers a new error rule and returns its generated ID.
func (b *Base) AddRule(field, condition, message string, severity domain.Severity, category string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.rules.Store(id, Rule{ID: id, Field: field, Condition: condition, Message: message, Severity: severity, Category: category})
	return id
}

// Evaluate runs a stored rule's condition against a row's field values.
func (b *Base) Evaluate(rule Rule, fields map[string]any) (bool, error) {
	return b.evaluator.Evaluate(rule.Condition, fields)
}

// LearnFromCorrection records a human correction as an exception
// pattern. Re-observing the same (field, interpretation-prefix) key
// increments its usage count instead of duplicating the record.
func (b *Base) LearnFromCorrection(field, originalValue string, wasError bool, correctInterpretation string, diagnosticContext map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := exceptionKey(field, correctInterpretation)
	existing, found := b.exceptions.Load(key)
	if found {
		existing.Count++
		b.exceptions.Store(key, existing)
		return
	}

	b.exceptions.Store(key, LearnedException{
		Field:                 field,
		OriginalValue:         originalValue,
		WasError:              wasError,
		CorrectInterpretation: correctInterpretation,
		DiagnosticContext:     diagnosticContext,
		Count:                 1,
	})
}

// Exceptions returns every learned exception pattern.
func (b *Base) Exceptions() []LearnedException {
	var out []LearnedException
	b.exceptions.Range(func(_ string, e LearnedException) bool {
		out = append(out, e)
		return true
	})
	return out
}

// ExceptionKey computes the dedup key an external persistence layer
// should use when mirroring LearnFromCorrection's keying scheme.
func ExceptionKey(field, interpretation string) string {
	return exceptionKey(field, interpretation)
}

func exceptionKey(field, interpretation string) string {
	prefix := interpretation
	if r := []rune(prefix); len(r) > 30 {
		prefix = string(r[:30])
	}
	return field + "\x1f" + prefix
}
