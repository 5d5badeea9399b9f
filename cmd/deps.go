package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/ai"
	"github.com/spigell/job-recommender/internal/ai/gemini"
	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/geo"
	"github.com/spigell/job-recommender/internal/logger"
	"github.com/spigell/job-recommender/internal/secrets"
)

// environment is what every command needs before doing its own work.
type environment struct {
	logger *zap.Logger
	config *Config
	// closers run in reverse order on shutdown.
	closers []func()
}

func newEnvironment() *environment {
	logger, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return &environment{logger: logger, config: config}
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	_ = e.logger.Sync()
}

// geocoder builds the cached Nominatim geocoder. Redis is used as the cache
// when configured, otherwise an in-memory store purged on a cron schedule.
func (e *environment) geocoder(ctx context.Context) (geo.Geocoder, error) {
	nominatim := geo.NewNominatim(e.config.Geocoder, e.logger)

	store, err := e.geocodeStore(ctx)
	if err != nil {
		return nil, err
	}

	return geo.NewCachedGeocoder(nominatim, store, e.config.Cache.TTL, e.logger), nil
}

func (e *environment) geocodeStore(ctx context.Context) (geo.Store, error) {
	if redisCfg := e.config.Cache.Redis; redisCfg != nil && strings.TrimSpace(redisCfg.URL) != "" {
		password, err := secrets.Optional(secrets.Source{
			Name: "redis password",
			File: redisCfg.PasswordFile,
		})
		if err != nil {
			return nil, err
		}

		client, err := geo.NewRedisClient(ctx, redisCfg.URL, password)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { _ = client.Close() })

		e.logger.Info("using redis geocode cache")
		return geo.NewRedisStore(client), nil
	}

	store := geo.NewMemoryStore()

	schedule := strings.TrimSpace(e.config.Cache.PurgeSchedule)
	if schedule == "" {
		return store, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if purged := store.Purge(); purged > 0 {
			e.logger.Debug("purged expired geocode entries", zap.Int("count", purged), zap.Int("left", store.Len()))
		}
	}); err != nil {
		return nil, fmt.Errorf("cache.purge-schedule %q: %w", schedule, err)
	}

	c.Start()
	e.closers = append(e.closers, func() { <-c.Stop().Done() })

	return store, nil
}

func (e *environment) filters() *filtering.Config {
	cfg := &filtering.Config{ExcludeFile: strings.TrimSpace(e.config.ExcludeFile)}
	if e.config.Exclude != nil {
		cfg.Companies = e.config.Exclude.Companies
	}
	return cfg
}

// explainer returns nil when AI explanations are disabled.
func (e *environment) explainer(ctx context.Context) (ai.Explainer, error) {
	cfg := e.config.AI
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, e.logger)
	if err != nil {
		return nil, err
	}

	explainer := gemini.NewExplainer(generator, cfg.Gemini.MaxLogLength,
		logger.WithFields(e.logger, logger.CommonFields("gemini", generator.Model())...))
	explainer.SetPromptOverrides(gemini.PromptOverrides{
		Tone:             cfg.Gemini.Tone,
		UserInstructions: cfg.Gemini.UserInstructions,
	})

	return explainer, nil
}
