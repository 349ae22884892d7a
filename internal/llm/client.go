// Costlens - Natural Language FinOps Analytics for AWS Cost and Usage Reports
// Copyright 2026 Costlens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/costlens/costlens

// Package llm abstracts the large-language-model provider behind a single
// Call operation. Responses are opaque text; all parsing is the caller's
// responsibility. The OpenAI-compatible implementation is wrapped in a
// circuit breaker so a misbehaving provider fails fast instead of tying
// up the pipeline for every request.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"

	"github.com/costlens/costlens/internal/logging"
	"github.com/costlens/costlens/internal/metrics"
)

// CallOptions tunes one invocation.
type CallOptions struct {
	// SystemPrompt is prepended as the system message when non-empty.
	SystemPrompt string
	// MaxTokens caps the completion length. Callers generating SQL set
	// this high (~12k) to leave room for complex payloads.
	MaxTokens int
	// ExpectJSON requests strict-JSON output from providers supporting a
	// response format parameter.
	ExpectJSON bool
	// Purpose labels metrics: "text_to_sql", "service_arbitration".
	Purpose string
}

// Client is the single operation the core consumes from the provider.
type Client interface {
	Call(ctx context.Context, prompt string, opts CallOptions) (string, error)
}

// ErrUnavailable is returned when the circuit breaker is open.
var ErrUnavailable = errors.New("llm provider unavailable")

// Config configures the OpenAI-compatible client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

// OpenAIClient implements Client against any OpenAI-compatible endpoint.
type OpenAIClient struct {
	api     *openai.Client
	model   string
	maxTok  int
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[string]
}

// NewOpenAIClient builds the provider client with its circuit breaker.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "llm",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("LLM circuit breaker state change")
		},
	}

	return &OpenAIClient{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		maxTok:  cfg.MaxTokens,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Call sends the prompt and returns the raw completion text.
func (c *OpenAIClient) Call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	purpose := opts.Purpose
	if purpose == "" {
		purpose = "generic"
	}
	start := time.Now()

	out, err := c.breaker.Execute(func() (string, error) {
		return c.call(ctx, prompt, opts)
	})
	metrics.LLMCallDuration.WithLabelValues(purpose).Observe(time.Since(start).Seconds())

	if err != nil {
		errType := "provider"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			errType = "breaker_open"
			err = fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
		metrics.LLMCallErrors.WithLabelValues(purpose, errType).Inc()
		return "", err
	}
	return out, nil
}

func (c *OpenAIClient) call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTok
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if opts.ExpectJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
