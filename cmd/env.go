package main

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/places"
	"github.com/watanabekazunori/tonarino/internal/report"
	"github.com/watanabekazunori/tonarino/internal/store"
	anthropicpkg "github.com/watanabekazunori/tonarino/pkg/anthropic"
	"github.com/watanabekazunori/tonarino/pkg/google"
)

// appEnv holds the clients and services shared by the commands.
type appEnv struct {
	Places     google.Client
	Discoverer *competitor.Discoverer
	Analyzer   *report.Analyzer // nil unless withReports
	Store      store.Store      // nil unless withStore

	redis *redis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
	if e.redis != nil {
		_ = e.redis.Close()
	}
}

type envOptions struct {
	withStore   bool
	withReports bool
}

// initEnv wires the Places client stack, discovery, and optionally the
// store and report analyzer. Callers should defer env.Close().
func initEnv(ctx context.Context, opts envOptions) (*appEnv, error) {
	env := &appEnv{}
	env.Places = initPlaces(env)
	env.Discoverer = competitor.NewDiscoverer(env.Places)

	if opts.withStore || opts.withReports {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Store = st
	}

	if opts.withReports {
		gen := report.NewClaudeGenerator(anthropicpkg.NewClient(cfg.Anthropic.Key), report.ClaudeConfig{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			Retry:     cfg.Report.Retry.Resilience(),
		})
		env.Analyzer = report.NewAnalyzer(env.Places, gen, env.Store, report.Config{
			CallDelay: cfg.Report.CallDelay(),
		})
	}
	return env, nil
}

// initPlaces builds google client -> guard -> optional redis cache.
func initPlaces(env *appEnv) google.Client {
	client := google.NewClient(cfg.Google.APIKey,
		google.WithBaseURL(cfg.Google.BaseURL),
		google.WithLanguage(cfg.Google.Language),
		google.WithHTTPClient(&http.Client{Timeout: cfg.Google.Timeout()}),
	)

	var c google.Client = places.NewGuard(client, places.GuardConfig{
		RatePerSec: cfg.Google.RateLimit,
		Circuit:    cfg.Circuit.Breaker(),
	})

	if cfg.Redis.Addr == "" {
		return c
	}
	env.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	zap.L().Info("places details cache enabled",
		zap.String("addr", cfg.Redis.Addr),
		zap.Duration("ttl", cfg.Redis.DetailsTTL()),
	)
	return places.NewCache(c, env.redis, cfg.Redis.DetailsTTL())
}

func requireFlag(name, value string) error {
	if value == "" {
		return eris.Errorf("--%s is required", name)
	}
	return nil
}
