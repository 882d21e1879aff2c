// Package validation is the Validator façade: it runs Layer-1, Layer-2
// and Layer-AI over a parsed workbook and merges their findings into
// one ValidationBundle.
package validation

import (
	"context"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/knowledge"
	"github.com/wikisoft/rosterval/internal/llm"
	"github.com/wikisoft/rosterval/internal/schema"
	"github.com/wikisoft/rosterval/internal/validation/layer1"
	"github.com/wikisoft/rosterval/internal/validation/layer2"
	"github.com/wikisoft/rosterval/internal/validation/layerai"
)

// Options tunes one Validate call.
type Options struct {
	Sheet            domain.Sheet
	DiagnosticAnswers map[string]any
	Layer2Tolerance  float64
	SkipAI           bool
}

// Validate runs L1 unconditionally, L2 when diagnostic answers are
// present, and L7/AI when a usable LLM client is supplied and the
// caller hasn't opted out, then merges everything into one bundle.
func Validate(ctx context.Context, parsed *domain.ParsedWorkbook, matches *domain.MatchSet, reg *schema.Registry, kb *knowledge.Base, client *llm.Client, opts Options) (*domain.ValidationBundle, error) {
	bundle := layer1.Validate(parsed, matches, opts.Sheet, reg)

	if len(opts.DiagnosticAnswers) > 0 {
		checks, status := layer2.Reconcile(opts.DiagnosticAnswers, parsed, matches, opts.Sheet, layer2.Options{TolerancePercent: opts.Layer2Tolerance})
		bundle.Checks = checks
		bundle.Layer2 = status
	}

	if !opts.SkipAI && client != nil && client.Available() {
		aiResult, err := layerai.Validate(ctx, parsed, matches, opts.DiagnosticAnswers, kb, client)
		if err != nil {
			return nil, err
		}
		if aiResult.Used {
			bundle.UsedAI = true
			bundle.AIReasoning = aiResult.Reasoning
			mergeAIFindings(bundle, aiResult.Findings)
		}
	}

	bundle.Passed = len(bundle.Errors) == 0 && len(bundle.Warnings) == 0 && bundle.Layer2 != domain.Layer2Failed
	return bundle, nil
}

// mergeAIFindings folds AI findings into the bundle's Errors/Warnings,
// keyed by (emp_info, field, normalized_message) per the merge rule: the
// more severe of two findings with the same key survives, and messages
// concatenate without duplication.
func mergeAIFindings(bundle *domain.ValidationBundle, aiFindings []domain.Finding) {
	type slot struct {
		finding domain.Finding
		isError bool
	}
	merged := make(map[string]*slot)
	order := make([]string, 0, len(bundle.Errors)+len(bundle.Warnings)+len(aiFindings))

	add := func(f domain.Finding) {
		key := f.MergeKey()
		existing, found := merged[key]
		isError := f.Severity == domain.SeverityError
		if !found {
			merged[key] = &slot{finding: f, isError: isError}
			order = append(order, key)
			return
		}
		if !containsMessage(existing.finding.Message, f.Message) {
			existing.finding.Message = existing.finding.Message + "; " + f.Message
		}
		if isError && !existing.isError {
			existing.finding.Severity = domain.SeverityError
			existing.isError = true
		}
	}

	for _, f := range bundle.Errors {
		add(f)
	}
	for _, f := range bundle.Warnings {
		add(f)
	}
	for _, f := range aiFindings {
		add(f)
	}

	var errs, warns []domain.Finding
	for _, key := range order {
		s := merged[key]
		if s.isError {
			errs = append(errs, s.finding)
		} else {
			warns = append(warns, s.finding)
		}
	}
	bundle.Errors = errs
	bundle.Warnings = warns
}

func containsMessage(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return haystack == needle ||
		(len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
