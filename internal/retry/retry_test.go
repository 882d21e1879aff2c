package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChain_KnownReasons(t *testing.T) {
	cases := []struct {
		reason   Reason
		expected []Strategy
	}{
		{ReasonLowConfidence, []Strategy{StrategyStrictMatching, StrategyLenientMatching, StrategyAskHuman}},
		{ReasonParseFailure, []Strategy{StrategyAlternativeParser, StrategyAskHuman}},
		{ReasonMatchFailure, []Strategy{StrategyFallbackOnly, StrategyLenientMatching, StrategyAskHuman}},
		{ReasonAPIError, []Strategy{StrategyExponentialBackoff, StrategyFallbackOnly}},
		{ReasonTimeout, []Strategy{StrategyExponentialBackoff, StrategyFallbackOnly}},
		{ReasonRateLimit, []Strategy{StrategyExponentialBackoff}},
	}
	for _, c := range cases {
		t.Run(string(c.reason), func(t *testing.T) {
			assert.Equal(t, c.expected, Chain(c.reason))
		})
	}
}

func TestChain_ReturnsDefensiveCopy(t *testing.T) {
	chain := Chain(ReasonLowConfidence)
	chain[0] = StrategyAskHuman

	again := Chain(ReasonLowConfidence)
	assert.Equal(t, StrategyStrictMatching, again[0], "mutating a returned chain must not affect the stored chain")
}

func TestPolicy_Delay_Monotonic(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, ExponentialBase: 2.0, Jitter: false}

	d0 := p.Delay(0)
	d1 := p.Delay(1)
	d2 := p.Delay(2)

	assert.Equal(t, time.Second, d0)
	assert.Equal(t, 2*time.Second, d1)
	assert.Equal(t, 4*time.Second, d2)
}

func TestPolicy_Delay_CapsAtMaxDelay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, ExponentialBase: 2.0, Jitter: false}

	d := p.Delay(10)

	assert.Equal(t, 5*time.Second, d)
}

func TestPolicy_Delay_JitterStaysInBounds(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, ExponentialBase: 2.0, Jitter: true}

	for i := 0; i < 20; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, time.Second, "jittered delay must never fall below half the unjittered delay")
		assert.LessOrEqual(t, d, 2*2*time.Second)
	}
}

func TestEncodingForAttempt_Rotates(t *testing.T) {
	assert.Equal(t, "utf-8", EncodingForAttempt(0))
	assert.Equal(t, "cp949", EncodingForAttempt(1))
	assert.Equal(t, "euc-kr", EncodingForAttempt(2))
	assert.Equal(t, "latin1", EncodingForAttempt(3))
	assert.Equal(t, "utf-8", EncodingForAttempt(4), "rotation should wrap around")
}

func TestApply_StrictMatching(t *testing.T) {
	ctx := &RetryContext{}
	Apply(StrategyStrictMatching, ctx)
	assert.GreaterOrEqual(t, ctx.MatchThreshold, 0.90)
	assert.True(t, ctx.ForceAI)
}

func TestApply_LenientMatching(t *testing.T) {
	ctx := &RetryContext{}
	Apply(StrategyLenientMatching, ctx)
	assert.Equal(t, 0.50, ctx.MatchThreshold)
}

func TestApply_FallbackOnly(t *testing.T) {
	ctx := &RetryContext{}
	Apply(StrategyFallbackOnly, ctx)
	assert.True(t, ctx.DisableLLM)
}

func TestApply_AlternativeParser_Rotates(t *testing.T) {
	ctx := &RetryContext{Encoding: "utf-8", ParserAttempt: 0}
	Apply(StrategyAlternativeParser, ctx)
	assert.Equal(t, "cp949", ctx.Encoding)
	assert.Equal(t, 1, ctx.ParserAttempt)
}

func TestApply_NoOpStrategies(t *testing.T) {
	for _, s := range []Strategy{StrategyExponentialBackoff, StrategyAskHuman} {
		ctx := &RetryContext{}
		Apply(s, ctx)
		assert.Equal(t, RetryContext{}, *ctx)
	}
}
