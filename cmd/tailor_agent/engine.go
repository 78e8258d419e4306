package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"

	"github.com/jonathan/doc-tailor/internal/cache"
	"github.com/jonathan/doc-tailor/internal/config"
	"github.com/jonathan/doc-tailor/internal/inference"
	"github.com/jonathan/doc-tailor/internal/job"
	"github.com/jonathan/doc-tailor/internal/llm"
	"github.com/jonathan/doc-tailor/internal/metrics"
	"github.com/jonathan/doc-tailor/internal/pipeline"
	"github.com/jonathan/doc-tailor/internal/profile"
	"github.com/jonathan/doc-tailor/internal/stages"
)

// engine wires the configured components into a runnable pipeline.
type engine struct {
	cfg      *config.Config
	orch     *pipeline.Orchestrator
	registry job.Registry
	metrics  *metrics.Recorder
	genai    *genai.Client
	postgres *job.PostgresRegistry
}

// buildEngine assembles backends, cache, metrics, registry, and stages from
// the resolved configuration.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	client, err := llm.NewGeminiClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	primary := llm.NewGeminiBackend(client, cfg.PrimaryModel)
	var fallback llm.Backend
	if cfg.FallbackModel != "" && cfg.FallbackModel != cfg.PrimaryModel {
		fallback = llm.NewGeminiBackend(client, cfg.FallbackModel)
	}

	responseCache, err := cache.New(cache.Config{
		MaxEntries: cfg.CacheMaxEntries,
		MaxBytes:   cfg.CacheMaxBytes,
		Dir:        cfg.CacheDir,
		DefaultTTL: cfg.CacheTTL(),
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	recorder := metrics.NewRecorder(cfg.MetricsWindow())

	inferClient := inference.NewClient(inference.Config{
		Primary:  primary,
		Fallback: fallback,
		Cache:    responseCache,
		Metrics:  recorder,
		Retries:  cfg.RetryCount,
		CacheTTL: cfg.CacheTTL(),
	})

	eng := &engine{cfg: cfg, metrics: recorder, genai: client}

	// A reachable Postgres gives jobs durability across restarts; without
	// one the registry lives in memory.
	eng.registry = job.NewMemoryRegistry()
	if cfg.DatabaseURL != "" {
		pg, err := job.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: database unavailable, using in-memory job registry: %v", err)
		} else {
			eng.registry = pg
			eng.postgres = pg
		}
	}

	eng.orch = pipeline.New(
		pipeline.Config{
			StageTimeout: cfg.StageTimeout(),
			MinInputLen:  cfg.MinInputLen,
		},
		eng.registry,
		prof,
		stages.NewExtract(inferClient),
		stages.NewMatch(inferClient),
		stages.NewGenerate(inferClient),
		stages.NewRender(cfg.ArtifactDir),
	)

	return eng, nil
}

// Close releases the engine's external connections.
func (e *engine) Close() {
	if e.postgres != nil {
		e.postgres.Close()
	}
	if e.genai != nil {
		e.genai.Close()
	}
}

// resolveConfig loads the optional config file, then fills from environment
// and defaults, then validates.
func resolveConfig(path string, override func(*config.Config)) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if override != nil {
		override(cfg)
	}
	cfg.FromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
