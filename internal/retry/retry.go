// Package retry implements the Retry Strategy (C12): per-reason
// strategy chains the Agent consults when it wants to retry with a
// different approach rather than replaying the same parameters.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Reason names why the Agent is requesting a retry.
type Reason string

const (
	ReasonLowConfidence Reason = "LOW_CONFIDENCE"
	ReasonParseFailure  Reason = "PARSE_FAILURE"
	ReasonMatchFailure  Reason = "MATCH_FAILURE"
	ReasonAPIError      Reason = "API_ERROR"
	ReasonTimeout       Reason = "TIMEOUT"
	ReasonRateLimit     Reason = "RATE_LIMIT"
)

// Strategy names one tactic change a retry chain step can apply.
type Strategy string

const (
	StrategyStrictMatching      Strategy = "STRICT_MATCHING"
	StrategyLenientMatching     Strategy = "LENIENT_MATCHING"
	StrategyAskHuman            Strategy = "ASK_HUMAN"
	StrategyAlternativeParser   Strategy = "ALTERNATIVE_PARSER"
	StrategyFallbackOnly        Strategy = "FALLBACK_ONLY"
	StrategyExponentialBackoff  Strategy = "EXPONENTIAL_BACKOFF"
)

// chains declares the ordered strategy sequence consulted per reason.
var chains = map[Reason][]Strategy{
	ReasonLowConfidence: {StrategyStrictMatching, StrategyLenientMatching, StrategyAskHuman},
	ReasonParseFailure:  {StrategyAlternativeParser, StrategyAskHuman},
	ReasonMatchFailure:  {StrategyFallbackOnly, StrategyLenientMatching, StrategyAskHuman},
	ReasonAPIError:      {StrategyExponentialBackoff, StrategyFallbackOnly},
	ReasonTimeout:       {StrategyExponentialBackoff, StrategyFallbackOnly},
	ReasonRateLimit:     {StrategyExponentialBackoff},
}

// Chain returns a copy of the declared strategy chain for reason, or an
// empty chain if the reason is unknown.
func Chain(reason Reason) []Strategy {
	c := chains[reason]
	out := make([]Strategy, len(c))
	copy(out, c)
	return out
}

// alternativeEncodings is the rotation ALTERNATIVE_PARSER cycles
// through, one per successive attempt.
var alternativeEncodings = []string{"utf-8", "cp949", "euc-kr", "latin1"}

// Policy configures backoff timing. Zero-valued BaseDelay, MaxDelay and
// ExponentialBase fall back to the package defaults (1s, 30s, 2.0).
type Policy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

func (p Policy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return time.Second
	}
	return p.BaseDelay
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return 30 * time.Second
	}
	return p.MaxDelay
}

func (p Policy) exponentialBase() float64 {
	if p.ExponentialBase <= 0 {
		return 2.0
	}
	return p.ExponentialBase
}

// Delay computes the backoff duration before the given attempt
// (1-indexed: attempt 1 is the first retry after the initial try).
// delay = min(base * base_exp^attempt, max_delay) * (0.5 + rand()) when jitter is on.
func (p Policy) Delay(attempt int) time.Duration {
	raw := float64(p.baseDelay()) * math.Pow(p.exponentialBase(), float64(attempt))
	if raw > float64(p.maxDelay()) {
		raw = float64(p.maxDelay())
	}
	if p.Jitter {
		raw *= 0.5 + rand.Float64()
	}
	return time.Duration(raw)
}

// EncodingForAttempt returns the decoding encoding ALTERNATIVE_PARSER
// should try on the given 0-indexed attempt, cycling through the
// declared rotation.
func EncodingForAttempt(attempt int) string {
	return alternativeEncodings[attempt%len(alternativeEncodings)]
}

// Outcome is the result of running a retry chain to completion,
// carried for observability.
type Outcome struct {
	FinalStrategy Strategy
	Attempts      int
	TotalDelay    time.Duration
	Exhausted     bool // true if the chain ran out of strategies without success
}

// Apply mutates ctx according to strategy's declared context effect.
// STRICT_MATCHING raises the confidence threshold and forces AI;
// LENIENT_MATCHING lowers it; FALLBACK_ONLY disables the LLM call;
// ALTERNATIVE_PARSER rotates the decode encoding.
func Apply(strategy Strategy, ctx *RetryContext) {
	switch strategy {
	case StrategyStrictMatching:
		ctx.MatchThreshold = 0.90
		ctx.ForceAI = true
	case StrategyLenientMatching:
		ctx.MatchThreshold = 0.50
	case StrategyFallbackOnly:
		ctx.DisableLLM = true
	case StrategyAlternativeParser:
		ctx.Encoding = EncodingForAttempt(ctx.ParserAttempt)
		ctx.ParserAttempt++
	case StrategyExponentialBackoff, StrategyAskHuman:
		// No context mutation: backoff only affects timing, and
		// ASK_HUMAN terminates the loop via the Agent's own state
		// machine rather than mutating retry context.
	}
}

// RetryContext is the subset of AgentContext retry strategies mutate.
type RetryContext struct {
	MatchThreshold float64
	ForceAI        bool
	DisableLLM     bool
	Encoding       string
	ParserAttempt  int
}
