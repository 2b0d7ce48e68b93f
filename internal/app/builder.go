package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"coursecraft/internal/llm"
	"coursecraft/internal/llm/groq"
	"coursecraft/internal/llm/openai"
	"coursecraft/internal/lock"
	"coursecraft/internal/narration"
	"coursecraft/internal/outline"
	"coursecraft/internal/slides"
	"coursecraft/internal/speech"
	"coursecraft/internal/speech/elevenlabs"
	"coursecraft/internal/speech/fonada"
	"coursecraft/internal/speech/googletts"
	"coursecraft/internal/storage"
	"coursecraft/internal/store"
	"coursecraft/pkg/config"
	"coursecraft/pkg/httputil"
	"coursecraft/pkg/prompts"
)

// BuildService wires every collaborator selected by cfg. The returned
// service owns the database, redis and cloud clients; call Close when done.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	var closers []func() error
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	p, err := prompts.Load()
	if err != nil {
		return fail(err)
	}

	llmProvider, err := buildLLM(cfg)
	if err != nil {
		return fail(err)
	}

	ttsProvider, closeTTS, err := buildSpeech(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeTTS)

	assets, closeAssets, err := buildAssetStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeAssets)

	db, err := store.Open(store.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.Database.Debug,
	})
	if err != nil {
		return fail(err)
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, sqlDB.Close)
	}
	if err := store.Migrate(db); err != nil {
		return fail(err)
	}

	var locker lock.Locker = lock.NewMemory()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, rdb.Close)
		locker = lock.NewRedis(rdb, cfg.Redis.Prefix)
	}

	slog.Debug("Service built",
		"llm", llmProvider.Name(),
		"speech", ttsProvider.Name(),
		"storage", cfg.Storage.Provider,
		"database", cfg.Database.Driver,
		"redis", cfg.Redis.Addr != "",
	)

	return NewService(ServiceOptions{
		Config:  cfg,
		Outline: outline.NewGenerator(llmProvider, p),
		Slides:  slides.NewExpander(llmProvider, p),
		Narration: narration.NewSynthesizer(ttsProvider, assets, narration.Options{
			Pacing:  cfg.Speech.Pacing,
			Timeout: cfg.Speech.Timeout,
		}),
		Store:   store.New(db),
		Locker:  locker,
		Closers: closers,
	}), nil
}

func buildLLM(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAI.Model, cfg.LLM.Temperature)
	case "groq", "":
		return groq.NewClient(cfg.GroqAPIKey, cfg.Groq.Model, cfg.LLM.Temperature)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func buildSpeech(ctx context.Context, cfg *config.Config) (speech.Provider, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Speech.Provider {
	case "elevenlabs":
		if len(cfg.ElevenLabsAPIKeys) == 0 {
			return nil, nil, fmt.Errorf("ELEVENLABS_API_KEY is required for speech provider elevenlabs")
		}
		return elevenlabs.NewClient(elevenlabs.Config{
			APIKeys:    cfg.ElevenLabsAPIKeys,
			VoiceID:    cfg.ElevenLabs.VoiceID,
			Model:      cfg.ElevenLabs.Model,
			Speed:      cfg.ElevenLabs.Speed,
			Stability:  cfg.ElevenLabs.Stability,
			Similarity: cfg.ElevenLabs.Similarity,
			HTTPClient: speechHTTPClient(cfg),
		}), noop, nil
	case "fonada":
		if cfg.FonadaAPIKey == "" {
			return nil, nil, fmt.Errorf("FONADA_API_KEY is required for speech provider fonada")
		}
		return fonada.NewClient(fonada.Config{
			APIKey:     cfg.FonadaAPIKey,
			Voice:      cfg.Fonada.Voice,
			Language:   cfg.Fonada.Language,
			HTTPClient: speechHTTPClient(cfg),
		}), noop, nil
	case "google":
		client, err := googletts.NewClient(ctx, googletts.Config{
			Voice:        cfg.GoogleTTS.Voice,
			LanguageCode: cfg.GoogleTTS.LanguageCode,
			SpeakingRate: cfg.GoogleTTS.SpeakingRate,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case "stub", "":
		return speech.NewStubProvider(speech.DefaultWordsPerMinute), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}
}

// speechHTTPClient returns nil unless retries are configured, leaving the
// provider on its own client with no retry.
func speechHTTPClient(cfg *config.Config) httputil.Doer {
	if cfg.Speech.MaxRetries <= 0 {
		return nil
	}
	return httputil.NewRetryClient(&http.Client{Timeout: cfg.Speech.Timeout}, httputil.RetryConfig{
		MaxRetries: cfg.Speech.MaxRetries,
	})
}

func buildAssetStore(ctx context.Context, cfg *config.Config) (storage.AssetStore, func() error, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		gcs, err := storage.NewGCSStorage(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	case "local", "":
		local := storage.NewLocalStorage(cfg.Storage.PublicDir, cfg.Storage.URLPrefix)
		if err := local.EnsureDirectories(); err != nil {
			return nil, nil, err
		}
		return local, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
