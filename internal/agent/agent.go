// Package agent implements the ReACT Agent (C11): a bounded
// Think→Act→Observe loop that drives the Tool Registry to completion,
// failure, or a human handoff.
package agent

import (
	"context"
	"fmt"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/progress"
	"github.com/wikisoft/rosterval/internal/registry"
	"github.com/wikisoft/rosterval/internal/retry"
	"github.com/wikisoft/rosterval/internal/tracing"
)

const (
	defaultMaxIterations              = 5
	defaultMatchRetryThreshold        = 0.80
	defaultMatchHumanThreshold        = 0.50
	defaultEarlyTerminationConfidence = 0.95
	maxMatchRetries                   = 2
)

// Config tunes one Agent run. The three confidence thresholds mirror
// config.ConfidenceThresholds; zero values fall back to the package
// defaults so callers that don't set them keep today's behavior.
type Config struct {
	MaxIterations int // default 5
	SkipAI        bool

	MatchRetryThreshold        float64
	MatchHumanThreshold        float64
	EarlyTerminationConfidence float64
}

func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) matchRetryThreshold() float64 {
	if c.MatchRetryThreshold <= 0 {
		return defaultMatchRetryThreshold
	}
	return c.MatchRetryThreshold
}

func (c Config) matchHumanThreshold() float64 {
	if c.MatchHumanThreshold <= 0 {
		return defaultMatchHumanThreshold
	}
	return c.MatchHumanThreshold
}

func (c Config) earlyTerminationConfidence() float64 {
	if c.EarlyTerminationConfidence <= 0 {
		return defaultEarlyTerminationConfidence
	}
	return c.EarlyTerminationConfidence
}

// Input is the static, request-scoped input to one Agent run.
type Input struct {
	SessionID        string
	Data             []byte
	Sheet            domain.Sheet
	DiagnosticAnswers map[string]any
	RowCap           int
	Layer2Tolerance  float64
}

// Publisher streams one session's live Think/Act/Observe transcript as
// the Run loop produces it. *progress.Hub satisfies this directly; a
// nil Publisher makes publishing a no-op.
type Publisher interface {
	Publish(sessionID string, event *progress.Event)
}

// Agent drives one request through the Tool Registry.
type Agent struct {
	registry  *registry.Registry
	publisher Publisher
}

// New constructs an Agent around a Tool Registry. pub may be nil, in
// which case Run never streams progress events.
func New(reg *registry.Registry, pub Publisher) *Agent {
	return &Agent{registry: reg, publisher: pub}
}

func (a *Agent) publish(sessionID string, event *progress.Event) {
	if a.publisher == nil || sessionID == "" {
		return
	}
	a.publisher.Publish(sessionID, event)
}

// Run executes the Think→Act→Observe loop to a terminal state.
func (a *Agent) Run(ctx context.Context, input Input, cfg Config) domain.AgentResult {
	agentCtx := domain.AgentContext{
		Sheet:             input.Sheet,
		DiagnosticAnswers: input.DiagnosticAnswers,
		RetryCount:        make(map[string]int),
	}
	var transcript []domain.ThoughtObservation
	var matchConfidence float64
	threshold := 0.0 // 0 means "use matcher's own default"
	forceAI := false
	strategyChain := retry.Chain(retry.ReasonLowConfidence)

	startEvent := progress.NewEvent(progress.EventRunStarted, input.SessionID)
	a.publish(input.SessionID, startEvent)

	for step := 1; step <= cfg.maxIterations(); step++ {
		select {
		case <-ctx.Done():
			return a.terminal(input.SessionID, domain.StatusFailed, agentCtx, transcript, 0, "cancelled")
		default:
		}

		action, reasoning := think(&agentCtx, matchConfidence, strategyChain, &threshold, &forceAI, cfg.matchRetryThreshold(), cfg.matchHumanThreshold())
		thought := domain.Thought{Step: step, Action: action, Reasoning: reasoning, Retry: agentCtx.RetryCount[string(retry.ReasonLowConfidence)] > 0 && action == domain.ActionMatch}

		switch action {
		case domain.ActionComplete:
			return a.terminal(input.SessionID, domain.StatusCompleted, agentCtx, transcript, overallConfidence(matchConfidence, agentCtx), "")
		case domain.ActionAskHuman:
			obs := domain.Observation{Success: true}
			transcript = append(transcript, domain.ThoughtObservation{Thought: thought, Observation: obs})
			a.publishStep(input.SessionID, step, thought, obs)
			return a.terminal(input.SessionID, domain.StatusNeedsHuman, agentCtx, transcript, overallConfidence(matchConfidence, agentCtx), reasoning)
		case domain.ActionFail:
			obs := domain.Observation{Success: false, Error: reasoning}
			transcript = append(transcript, domain.ThoughtObservation{Thought: thought, Observation: obs})
			a.publishStep(input.SessionID, step, thought, obs)
			return a.terminal(input.SessionID, domain.StatusFailed, agentCtx, transcript, overallConfidence(matchConfidence, agentCtx), reasoning)
		}

		spanCtx, span := tracing.StartIteration(ctx, step, string(action))
		obs := a.act(spanCtx, &agentCtx, action, input, threshold, cfg.SkipAI && !forceAI)
		tracing.RecordObservation(span, obs.Success, obs.Confidence, obs.Error)
		span.End()

		transcript = append(transcript, domain.ThoughtObservation{Thought: thought, Observation: obs})
		a.publishStep(input.SessionID, step, thought, obs)

		if action == domain.ActionMatch && obs.Success {
			matchConfidence = obs.Confidence
		}

		if !obs.Success {
			return a.terminal(input.SessionID, domain.StatusFailed, agentCtx, transcript, 0, obs.Error)
		}

		if agentCtx.Validation != nil && overallConfidence(matchConfidence, agentCtx) >= cfg.earlyTerminationConfidence() {
			return a.terminal(input.SessionID, domain.StatusCompleted, agentCtx, transcript, overallConfidence(matchConfidence, agentCtx), "")
		}
	}

	return a.terminal(input.SessionID, domain.StatusFailed, agentCtx, transcript, 0, "max_iterations_exceeded")
}

// publishStep streams one completed Think/Act/Observe iteration.
func (a *Agent) publishStep(sessionID string, step int, thought domain.Thought, obs domain.Observation) {
	event := progress.NewEvent(progress.EventIterationDone, sessionID)
	event.Step = step
	event.Thought = &thought
	event.Observation = &obs
	a.publish(sessionID, event)
}

// think implements the Agent's rule-based action selection. threshold
// and forceAI are mutated in place when a retry strategy changes the
// matcher's lexical threshold or demands the AI validation pass run
// regardless of the caller's SkipAI setting.
func think(ctx *domain.AgentContext, matchConfidence float64, chain []retry.Strategy, threshold *float64, forceAI *bool, matchRetryThreshold, matchHumanThreshold float64) (domain.ActionType, string) {
	if ctx.Parsed == nil {
		return domain.ActionParse, "no parsed workbook yet"
	}
	if ctx.Matches == nil {
		return domain.ActionMatch, "no header match set yet"
	}

	retryKey := string(retry.ReasonLowConfidence)
	if matchConfidence < matchRetryThreshold && ctx.RetryCount[retryKey] < maxMatchRetries {
		strategy := chain[ctx.RetryCount[retryKey]]
		ctx.RetryCount[retryKey]++
		applyStrategy(strategy, threshold, forceAI)
		return domain.ActionMatch, fmt.Sprintf("match confidence %.2f is below %.2f, retrying with %s (%d/%d)",
			matchConfidence, matchRetryThreshold, strategy, ctx.RetryCount[retryKey], maxMatchRetries)
	}
	if matchConfidence < matchHumanThreshold {
		return domain.ActionAskHuman, fmt.Sprintf("match confidence %.2f remains below %.2f after retries", matchConfidence, matchHumanThreshold)
	}
	if ctx.Validation == nil {
		return domain.ActionValidate, "match confidence acceptable, running validation"
	}
	return domain.ActionComplete, "validation complete"
}

func applyStrategy(strategy retry.Strategy, threshold *float64, forceAI *bool) {
	rc := &retry.RetryContext{}
	retry.Apply(strategy, rc)
	if rc.MatchThreshold > 0 {
		*threshold = rc.MatchThreshold
	}
	if rc.ForceAI {
		*forceAI = true
	}
}

// act dispatches the chosen action through the Tool Registry and folds
// a successful result into agentCtx. skipAI is overridden to false when
// a STRICT_MATCHING retry has forced the AI validation pass on.
func (a *Agent) act(ctx context.Context, agentCtx *domain.AgentContext, action domain.ActionType, input Input, threshold float64, skipAI bool) domain.Observation {
	toolSpanCtx, span := tracing.StartToolCall(ctx, string(action))
	defer span.End()

	switch action {
	case domain.ActionParse:
		res := a.registry.Dispatch(toolSpanCtx, registry.Request{
			Name:  registry.ToolParse,
			Parse: &registry.ParseParams{Data: input.Data, RowCap: input.RowCap},
		})
		if res.Success {
			agentCtx.Parsed = res.Parsed
		}
		return observationFrom(res)

	case domain.ActionMatch:
		res := a.registry.Dispatch(toolSpanCtx, registry.Request{
			Name: registry.ToolMatch,
			Match: &registry.MatchParams{
				Headers:          agentCtx.Parsed.Headers,
				Sheet:            agentCtx.Sheet,
				LexicalThreshold: threshold,
			},
		})
		if res.Success {
			agentCtx.Matches = res.Matches
		}
		return observationFrom(res)

	case domain.ActionValidate:
		res := a.registry.Dispatch(toolSpanCtx, registry.Request{
			Name: registry.ToolValidate,
			Validate: &registry.ValidateParams{
				Parsed:            agentCtx.Parsed,
				Matches:           agentCtx.Matches,
				Sheet:             agentCtx.Sheet,
				DiagnosticAnswers: agentCtx.DiagnosticAnswers,
				Layer2Tolerance:   input.Layer2Tolerance,
				SkipAI:            skipAI,
			},
		})
		if res.Success {
			agentCtx.Validation = res.Validation
		}
		return observationFrom(res)

	default:
		return domain.Observation{Success: false, Error: fmt.Sprintf("agent: unreachable action %q in act", action)}
	}
}

func observationFrom(res registry.Result) domain.Observation {
	return domain.Observation{Success: res.Success, Error: res.Error, Confidence: res.Confidence}
}

// overallConfidence is the match-set confidence until validation has
// landed, then the plain average of the match-set confidence and the
// validation bundle's score, with that score capped at 0.8 when an
// anomaly was detected or Layer-2 failed.
func overallConfidence(matchConfidence float64, ctx domain.AgentContext) float64 {
	if ctx.Validation == nil {
		return matchConfidence
	}
	validationConfidence := ctx.Validation.Confidence.Score
	if ctx.Validation.Anomaly.Detected && validationConfidence > 0.8 {
		validationConfidence = 0.8
	}
	if ctx.Validation.Layer2 == domain.Layer2Failed && validationConfidence > 0.8 {
		validationConfidence = 0.8
	}
	return (matchConfidence + validationConfidence) / 2
}

func grade(confidence float64) domain.Grade {
	switch {
	case confidence >= 0.95:
		return domain.GradeA
	case confidence >= 0.80:
		return domain.GradeB
	case confidence >= 0.50:
		return domain.GradeC
	default:
		return domain.GradeD
	}
}

func (a *Agent) terminal(sessionID string, status domain.AgentStatus, ctx domain.AgentContext, transcript []domain.ThoughtObservation, confidence float64, reason string) domain.AgentResult {
	g := grade(confidence)
	result := domain.AgentResult{
		Status:         status,
		Grade:          g,
		Confidence:     confidence,
		Recommendation: domain.GradeRecommendation(g),
		Reason:         reason,
		Transcript:     transcript,
		Context:        ctx,
	}

	event := progress.NewEvent(terminalEventType(status), sessionID)
	event.Status = status
	event.Grade = g
	event.Confidence = confidence
	event.Recommendation = result.Recommendation
	event.Reason = reason
	a.publish(sessionID, event)

	return result
}

func terminalEventType(status domain.AgentStatus) string {
	switch status {
	case domain.StatusCompleted:
		return progress.EventRunCompleted
	case domain.StatusNeedsHuman:
		return progress.EventRunNeedsHuman
	default:
		return progress.EventRunFailed
	}
}
