// Package llm wraps the OpenAI chat completion API for the components
// that consult a model: the Header Matcher (C4) and the Layer-AI
// Validator (C7). Every call here is advisory — callers always have a
// deterministic fallback path and must never block request completion
// solely on this package succeeding.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	domainerrors "github.com/wikisoft/rosterval/internal/domain/errors"
	"github.com/wikisoft/rosterval/internal/retry"
)

const (
	defaultModel = "gpt-4o"
	promptPreviewChars = 500
)

// Client is a thin, temperature-0, JSON-mode wrapper around the OpenAI
// chat completion endpoint. Transient failures (rate limits, 5xx,
// timeouts) are retried per policy before giving up.
type Client struct {
	inner  *openai.Client
	model  string
	policy retry.Policy
}

// New constructs a Client. apiKey must be non-empty; callers resolve it
// from config before reaching here — unlike the teacher's node
// executors, this package has no execution-context fallback because
// the validation pipeline has no per-request variable store.
func New(apiKey, model string, policy retry.Policy) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{inner: openai.NewClient(apiKey), model: model, policy: policy}
}

// Available reports whether this client was constructed with
// credentials, so callers can skip straight to a lexical fallback.
func (c *Client) Available() bool {
	return c != nil
}

// CompleteJSON sends a single-message temperature-0 JSON-mode
// completion request and returns the raw content string for the
// caller to unmarshal. The caller owns JSON-shape validation: an
// invalid or semantically unexpected response is the caller's cue to
// fall through to its own deterministic path, not this package's.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	preview := userPrompt
	if len(preview) > promptPreviewChars {
		preview = preview[:promptPreviewChars] + "..."
	}
	log.Debug().Str("model", c.model).Str("prompt_preview", preview).Msg("dispatching llm request")

	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages:    messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var resp openai.ChatCompletionResponse
	var err error
	maxRetries := c.policy.MaxRetries

	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err = c.inner.CreateChatCompletion(ctx, req)
		latency := time.Since(start)

		if err == nil {
			break
		}

		if !isTransient(err) || attempt >= maxRetries {
			log.Warn().Err(err).Dur("latency", latency).Int("attempt", attempt).Msg("llm request failed")
			return "", fmt.Errorf("llm: chat completion: %w", err)
		}

		transientErr := domainerrors.NewTransientError(string(retry.ReasonAPIError), err)
		delay := c.policy.Delay(attempt + 1)
		log.Warn().Err(transientErr).Dur("latency", latency).Dur("retry_in", delay).Int("attempt", attempt).Msg("llm request failed transiently, retrying")

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("llm: chat completion: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("llm request completed")

	return content, nil
}

// isTransient reports whether err is worth retrying: a rate limit or
// server-side fault reported by the API, a network-level failure, or a
// context deadline exceeded partway through the call.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
