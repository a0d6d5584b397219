package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/ai"
	"github.com/spigell/talent-matcher/internal/ai/gemini"
	"github.com/spigell/talent-matcher/internal/bulk"
	"github.com/spigell/talent-matcher/internal/events"
	"github.com/spigell/talent-matcher/internal/filtering"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/matcher"
	"github.com/spigell/talent-matcher/internal/secrets"
	"github.com/spigell/talent-matcher/internal/store"
	"github.com/spigell/talent-matcher/internal/store/postgres"
	"github.com/spigell/talent-matcher/internal/store/sqlite"
)

// deps holds everything a command needs. close releases the connections.
type deps struct {
	config  *Config
	logger  *zap.Logger
	store   store.Store
	rdb     *redis.Client
	service *matcher.Service
}

func (d *deps) close() {
	if d.store != nil {
		d.store.Close()
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	_ = d.logger.Sync()
}

// newLogger builds the process logger or exits.
func newLogger() *zap.Logger {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return logger
}

// setup loads the config and opens storage. With withService it also builds the matching
// service and its collaborators.
func setup(ctx context.Context, withService bool) (*deps, error) {
	d := &deps{logger: newLogger()}

	config, err := getConfig()
	if err != nil {
		return d, fmt.Errorf("getting a config: %w", err)
	}
	if config == nil || config.Storage == nil {
		return d, errors.New("storage configuration is required")
	}
	d.config = config

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	d.logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	d.store, err = openStore(ctx, config.Storage, d.logger.Named("store"))
	if err != nil {
		return d, err
	}

	if !withService {
		return d, nil
	}

	publisher := events.Publisher(events.Nop{})
	statuses := bulk.StatusStore(bulk.NewMemoryStore())

	needRedis := config.Redis != nil && (config.Redis.Events || storeKind(config) == "redis")
	if needRedis {
		if strings.TrimSpace(config.Redis.URL) == "" {
			return d, errors.New("redis.url is required for redis events or the redis bulk status store")
		}
		d.rdb, err = events.NewRedisClient(ctx, config.Redis.URL)
		if err != nil {
			return d, err
		}
		if config.Redis.Events {
			publisher = events.NewRedisPublisher(d.rdb)
		}
		if storeKind(config) == "redis" {
			statuses = bulk.NewRedisStore(d.rdb, config.Redis.StatusTTL)
		}
	}

	explainer, extractor, err := newAI(ctx, config.AI, d.logger)
	if err != nil {
		return d, fmt.Errorf("building ai collaborators: %w", err)
	}

	matching := config.Matching
	if matching == nil {
		matching = &MatchingConfig{}
	}

	filter := newFilter(matching.DisabledRules, d.logger)

	d.service = matcher.New(&matcher.Config{
		MinScore: matching.MinScore,
		Explain:  matching.Explain && explainer != nil,
	}, &matcher.Deps{
		Store:     d.store,
		Filter:    filter,
		Explainer: explainer,
		Extractor: extractor,
		Publisher: publisher,
		Statuses:  statuses,
		Logger:    d.logger,
	})

	return d, nil
}

// newFilter builds the default eligibility filter with the configured rules turned off.
func newFilter(disabled []string, log *zap.Logger) *filtering.Filter {
	filter := filtering.Default(log.Named("filter"))
	for _, name := range disabled {
		filtering.DisableByName(filter.Rules(), strings.TrimSpace(name), "disabled in config")
	}

	for _, st := range filtering.Describe(filter.Rules()) {
		fields := []zap.Field{zap.String("rule", st.Name), zap.Bool("enabled", st.Enabled)}
		if st.Reason != "" {
			fields = append(fields, zap.String("reason", st.Reason))
		}
		for k, v := range st.Details {
			fields = append(fields, zap.String(k, v))
		}
		log.Debug("eligibility rule", fields...)
	}
	return filter
}

func storeKind(config *Config) string {
	if config.Bulk == nil {
		return "memory"
	}
	return strings.ToLower(strings.TrimSpace(config.Bulk.StatusStore))
}

func openStore(ctx context.Context, cfg *StorageConfig, log *zap.Logger) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "postgresql":
		url, err := secrets.Load(secrets.Source{
			Name:  "database url",
			Value: cfg.DatabaseURL,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, err
		}
		s, err := postgres.Open(ctx, url, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "":
		s, err := sqlite.Open(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// newAI returns nil collaborators when AI is disabled.
func newAI(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Explainer, ai.Extractor, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("ai is disabled, matches get deterministic gaps only")
		return nil, nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:             cfg.Gemini.Model,
		MaxRetries:        cfg.Gemini.MaxRetries,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Logger:            genLogger,
	})
	if err != nil {
		return nil, nil, err
	}

	return gemini.NewExplainer(generator, logger, cfg.Gemini.MaxLogLength),
		gemini.NewExtractor(generator, logger, cfg.Gemini.MaxLogLength),
		nil
}

// redacted hides credentials embedded in URLs before the config is logged.
func redacted(config *Config) *Config {
	c := *config
	if c.Storage != nil && c.Storage.DatabaseURL != "" {
		storage := *c.Storage
		storage.DatabaseURL = "<redacted>"
		c.Storage = &storage
	}
	if c.Redis != nil && c.Redis.URL != "" {
		r := *c.Redis
		r.URL = "<redacted>"
		c.Redis = &r
	}
	return &c
}
