package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watanabekazunori/tonarino/internal/resilience"
	"github.com/watanabekazunori/tonarino/pkg/anthropic"
)

func testRetry(delays *[]time.Duration) resilience.RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Sleep = recordSleep(delays)
	return cfg
}

func TestClaudeGenerator_Success(t *testing.T) {
	fm := &fakeMessages{text: `{"ok": true}`}
	var delays []time.Duration

	g := NewClaudeGenerator(fm, ClaudeConfig{Retry: testRetry(&delays)})
	text, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, text)
	require.Len(t, fm.calls, 1)
	req := fm.calls[0]
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, int64(2048), req.MaxTokens)
	require.Len(t, req.System, 1)
	assert.Equal(t, systemPrompt, req.System[0].Text)
	assert.NotNil(t, req.System[0].CacheControl)
	assert.Equal(t, []anthropic.Message{{Role: "user", Content: "hello"}}, req.Messages)
	assert.Empty(t, delays)
}

func TestClaudeGenerator_RetriesRateLimitAndOverload(t *testing.T) {
	fm := &fakeMessages{
		errs: []error{
			&anthropic.StatusError{StatusCode: 429, Message: "rate_limit_error"},
			&anthropic.StatusError{StatusCode: 529, Message: "overloaded_error"},
			&anthropic.StatusError{StatusCode: 503, Message: "unavailable"},
		},
		text: "done",
	}
	var delays []time.Duration

	g := NewClaudeGenerator(fm, ClaudeConfig{Model: "m", MaxTokens: 100, Retry: testRetry(&delays)})
	text, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)

	assert.Equal(t, "done", text)
	assert.Len(t, fm.calls, 4)
	assert.Equal(t, []time.Duration{20 * time.Second, 40 * time.Second, 60 * time.Second}, delays)
	assert.Equal(t, "m", fm.calls[0].Model)
}

func TestClaudeGenerator_GivesUpAfterMaxAttempts(t *testing.T) {
	limited := &anthropic.StatusError{StatusCode: 429, Message: "rate_limit_error"}
	fm := &fakeMessages{errs: []error{limited, limited, limited, limited, limited, limited}}
	var delays []time.Duration

	g := NewClaudeGenerator(fm, ClaudeConfig{Retry: testRetry(&delays)})
	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)

	assert.Len(t, fm.calls, 5)
	assert.Equal(t, []time.Duration{20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second}, delays)
}

func TestClaudeGenerator_NoRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"daily quota", &anthropic.StatusError{StatusCode: 429, Message: "Quota exceeded for GenerateRequestsPerDay"}},
		{"bad request", &anthropic.StatusError{StatusCode: 400, Message: "invalid_request_error"}},
		{"auth", &anthropic.StatusError{StatusCode: 401, Message: "authentication_error"}},
		{"plain error", errors.New("malformed response")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := &fakeMessages{errs: []error{tt.err}, text: "unused"}
			var delays []time.Duration

			g := NewClaudeGenerator(fm, ClaudeConfig{Retry: testRetry(&delays)})
			_, err := g.Generate(context.Background(), "p")
			require.Error(t, err)

			assert.Len(t, fm.calls, 1)
			assert.Empty(t, delays)
		})
	}
}

func TestIsDailyQuota(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Quota exceeded for metric GenerateRequestsPerDay", true},
		{"RATE_LIMIT_EXCEEDED: daily limit reached", true},
		{"You have exceeded your daily token quota", true},
		{"RATE_LIMIT_EXCEEDED", false},
		{"rate_limit_error: requests per minute", false},
		{"daily digest", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDailyQuota(errors.New(tt.msg)))
		})
	}
	assert.False(t, IsDailyQuota(nil))
}

func TestClassify(t *testing.T) {
	err := classify(&anthropic.StatusError{StatusCode: 429, Message: "slow down"})
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, 429, resilience.StatusCode(err))

	err = classify(&anthropic.StatusError{StatusCode: 500, Message: "internal"})
	assert.False(t, resilience.IsTransient(err))
}
