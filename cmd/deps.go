package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/ai"
	"github.com/spigell/havewant/internal/ai/gemini"
	"github.com/spigell/havewant/internal/ai/openai"
	"github.com/spigell/havewant/internal/config"
	"github.com/spigell/havewant/internal/matching"
	"github.com/spigell/havewant/internal/secrets"
	"github.com/spigell/havewant/internal/store"
)

type services struct {
	db       *sqlx.DB
	listings *store.ListingRepository
	matches  *store.MatchRepository
	users    *store.UserRepository
	matching *matching.Service
}

func openDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := store.Open(ctx, store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Migrate {
		if err := store.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database schema is up to date")
	}

	return db, nil
}

func buildServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*services, error) {
	db, err := openDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	generator, err := newRationaleGenerator(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("building rationale generator: %w", err)
	}

	s := &services{
		db:       db,
		listings: store.NewListingRepository(db),
		matches:  store.NewMatchRepository(db),
		users:    store.NewUserRepository(db),
	}

	s.matching = matching.NewService(s.listings, s.matches, generator, matching.Config{
		MinScore:       cfg.Matching.MinScore,
		CandidateLimit: cfg.Matching.CandidateLimit,
		Parallelism:    cfg.Matching.Parallelism,
	}, logger)

	return s, nil
}

func newRationaleGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ai.RationaleGenerator, error) {
	if !cfg.AI.Enabled {
		logger.Info("ai is disabled, matches get the fallback rationale")
		return ai.Disabled{}, nil
	}

	var (
		completer ai.Completer
		err       error
	)

	switch cfg.AIProvider() {
	case "gemini":
		completer, err = newGemini(ctx, cfg.AI.Gemini, logger)
	case "openai":
		completer, err = newOpenAI(cfg.AI, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.AI.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ai.NewAnalyst(completer, ai.AnalystConfig{
		Timeout:             cfg.AI.Timeout,
		RationaleMaxTokens:  cfg.AI.RationaleMaxTokens,
		StructuresMaxTokens: cfg.AI.StructuresMaxTokens,
		MaxLogLength:        cfg.AI.MaxLogLength,
	}, logger), nil
}

func newGemini(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (ai.Completer, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))

	return gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
}

func newOpenAI(cfg config.AIConfig, logger *zap.Logger) (ai.Completer, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: cfg.OpenAI.APIKey,
		File:  cfg.OpenAI.APIKeyFile,
		Env:   "OPENAI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY)", err)
	}

	return openai.New(openai.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  apiKey,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.Timeout,
		Retries: cfg.OpenAI.MaxRetries,
	}, logger.With(zap.Int("ai_retry_attempts", cfg.OpenAI.MaxRetries)))
}

func loadJWTSecret(cfg *config.Config) ([]byte, error) {
	secret, err := secrets.Load(secrets.Source{
		Name:  "jwt secret",
		Value: cfg.Auth.JWTSecret,
		File:  cfg.Auth.JWTSecretFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set auth.jwt-secret-file or HAVEWANT_AUTH_JWT_SECRET)", err)
	}
	return []byte(secret), nil
}
