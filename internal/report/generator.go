package report

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/resilience"
	"github.com/watanabekazunori/tonarino/pkg/anthropic"
)

// Generator turns a prompt into response text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5-20251001"

// ClaudeConfig configures a ClaudeGenerator.
type ClaudeConfig struct {
	Model     string
	MaxTokens int64
	Retry     resilience.RetryConfig
}

// DefaultRetryConfig waits 20s, 40s, 60s, 60s between five attempts.
func DefaultRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 20 * time.Second,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2,
	}
}

// ClaudeGenerator implements Generator on the Anthropic Messages API.
type ClaudeGenerator struct {
	client anthropic.Client
	cfg    ClaudeConfig
}

// NewClaudeGenerator creates a ClaudeGenerator. Zero config fields take
// defaults.
func NewClaudeGenerator(client anthropic.Client, cfg ClaudeConfig) *ClaudeGenerator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	cfg.Retry.ShouldRetry = shouldRetry
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "generate")
	}
	return &ClaudeGenerator{client: client, cfg: cfg}
}

// Generate sends prompt as a single user message. Rate-limit and overload
// failures are retried with backoff; daily quota failures are not.
func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := anthropic.MessageRequest{
		Model:     g.cfg.Model,
		MaxTokens: g.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	}

	resp, err := resilience.DoVal(ctx, g.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := g.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, classify(err)
		}
		return resp, nil
	})
	if err != nil {
		return "", eris.Wrap(err, "report: generate")
	}

	resp.Usage.LogCost(g.cfg.Model, "report")
	zap.L().Debug("report: generation complete",
		zap.String("model", g.cfg.Model),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("response_len", len(resp.Text())),
	)
	return resp.Text(), nil
}

// classify marks rate-limit and overload responses as transient unless they
// report an exhausted daily quota.
func classify(err error) error {
	var se *anthropic.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, resilience.StatusOverloaded:
		if IsDailyQuota(err) {
			return err
		}
		return resilience.NewTransientError(err, se.StatusCode)
	default:
		return err
	}
}

func shouldRetry(err error) bool {
	return resilience.IsTransient(err) && !IsDailyQuota(err)
}

// IsDailyQuota reports whether err signals an exhausted daily quota, which
// no amount of waiting within a request will fix.
func IsDailyQuota(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "PerDay") {
		return true
	}
	lower := strings.ToLower(msg)
	if strings.Contains(msg, "RATE_LIMIT_EXCEEDED") && strings.Contains(lower, "daily") {
		return true
	}
	return strings.Contains(lower, "daily") && strings.Contains(lower, "quota")
}
