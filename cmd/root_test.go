package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/talent-matcher/internal/filtering"
)

func TestConfigDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("TALENT_MATCHER_STORAGE_DRIVER", "postgres")
	t.Setenv("TALENT_MATCHER_MATCHING_MIN_SCORE", "45")
	t.Setenv("TALENT_MATCHER_BULK_STATUS_STORE", "redis")
	t.Setenv("TALENT_MATCHER_AI_GEMINI_MAX_RETRIES", "5")

	v := viper.New()
	setDefaults(v)

	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if config.Storage.Driver != "postgres" || config.Storage.SQLitePath != "data/talent-matcher.db" {
		t.Fatalf("unexpected storage config: %+v", config.Storage)
	}
	if config.Matching.MinScore != 45 || !config.Matching.Explain {
		t.Fatalf("unexpected matching config: %+v", config.Matching)
	}
	if storeKind(config) != "redis" {
		t.Fatalf("expected redis status store, got %q", storeKind(config))
	}
	if config.AI.Gemini.MaxRetries != 5 || config.AI.Enabled {
		t.Fatalf("unexpected ai config: %+v", config.AI.Gemini)
	}
	if config.Redis.StatusTTL != 7*24*time.Hour || config.Server.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v %+v", config.Redis, config.Server)
	}
}

func TestRedactedHidesConnectionStrings(t *testing.T) {
	config := &Config{
		Storage: &StorageConfig{Driver: "postgres", DatabaseURL: "postgres://user:secret@db/talent"},
		Redis:   &RedisConfig{URL: "redis://:secret@cache:6379/0"},
	}

	got := redacted(config)
	if got.Storage.DatabaseURL != "<redacted>" || got.Redis.URL != "<redacted>" {
		t.Fatalf("expected credentials to be hidden, got %+v %+v", got.Storage, got.Redis)
	}
	if config.Storage.DatabaseURL == "<redacted>" {
		t.Fatalf("original config must not change")
	}
}

func TestNewFilterDisablesConfiguredRules(t *testing.T) {
	filter := newFilter([]string{" seniority "}, zap.NewNop())

	for _, st := range filtering.Describe(filter.Rules()) {
		wantEnabled := st.Name != "seniority"
		if st.Enabled != wantEnabled {
			t.Fatalf("rule %s: expected enabled=%v, got %+v", st.Name, wantEnabled, st)
		}
	}
}

func TestServeCommandRegistered(t *testing.T) {
	c, _, err := rootCmd.Find([]string{"serve"})
	if err != nil || c != serveCmd {
		t.Fatalf("serve command not registered: %v", err)
	}
	if f := serveCmd.Flags().Lookup("migrate"); f == nil || f.DefValue != "false" {
		t.Fatalf("expected --migrate flag defaulting to false, got %+v", f)
	}
}
