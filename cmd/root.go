package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "talent-matcher"
	envPrefix = "TALENT_MATCHER"
)

type Config struct {
	Server    *ServerConfig    `mapstructure:"server"`
	Storage   *StorageConfig   `mapstructure:"storage"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Matching  *MatchingConfig  `mapstructure:"matching"`
	Bulk      *BulkConfig      `mapstructure:"bulk"`
	Scheduler *SchedulerConfig `mapstructure:"scheduler"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database-url"`
	SQLitePath  string `mapstructure:"sqlite-path"`
}

type RedisConfig struct {
	URL       string        `mapstructure:"url"`
	StatusTTL time.Duration `mapstructure:"status-ttl"`
	// Events enables publishing of match and bulk job notifications.
	Events bool `mapstructure:"events"`
}

type MatchingConfig struct {
	MinScore int  `mapstructure:"min-score"`
	Explain  bool `mapstructure:"explain"`
	// DisabledRules turns off eligibility rules by name, e.g. "seniority".
	DisabledRules []string `mapstructure:"disabled-rules"`
}

type BulkConfig struct {
	StatusStore string `mapstructure:"status-store"`
}

type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile        string `mapstructure:"api-key-file"`
	Model             string `mapstructure:"model"`
	MaxRetries        int    `mapstructure:"max-retries"`
	MaxLogLength      int    `mapstructure:"max-log-length"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talent-matcher scores candidates against job postings and keeps the results for recruiters",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talent-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so that TALENT_MATCHER_* variables override them even
// without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown-timeout", 15*time.Second)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.database-url", "")
	v.SetDefault("storage.sqlite-path", "data/talent-matcher.db")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.status-ttl", 7*24*time.Hour)
	v.SetDefault("redis.events", false)
	v.SetDefault("matching.min-score", 30)
	v.SetDefault("matching.explain", true)
	v.SetDefault("matching.disabled-rules", []string{})
	v.SetDefault("bulk.status-store", "memory")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "@daily")
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 500)
	v.SetDefault("ai.gemini.requests-per-minute", 0)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without an explicit config file the defaults and environment are enough.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
