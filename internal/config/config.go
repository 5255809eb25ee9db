// Package config centralizes application configuration: YAML file via
// viper, .env loading via godotenv, environment-variable overrides, and
// defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        App        `mapstructure:"app"`
	Server     Server     `mapstructure:"server"`
	AI         AI         `mapstructure:"ai"`
	Publishing Publishing `mapstructure:"publishing"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CronSecret   string        `mapstructure:"cron_secret"` // bearer token for the scheduled trigger
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin configuration for the dashboard.
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AI holds generation-service configuration.
type AI struct {
	Gemini Gemini `mapstructure:"gemini"`
}

// Gemini holds Google Gemini configuration.
type Gemini struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Publishing holds pipeline and collaborator configuration.
type Publishing struct {
	BaseURL       string        `mapstructure:"base_url"`  // canonical site base, no trailing slash
	Languages     []string      `mapstructure:"languages"` // one article artifact required per language
	BatchBudget   time.Duration `mapstructure:"batch_budget"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"` // per index-ping budget
	PostTimeout   time.Duration `mapstructure:"post_timeout"`   // per social-post budget
	Indexing      Indexing      `mapstructure:"indexing"`
	Social        Social        `mapstructure:"social"`
}

// Indexing holds search-indexing notifier configuration.
type Indexing struct {
	Endpoint string `mapstructure:"endpoint"`
}

// Social holds social-publisher configuration.
type Social struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

var globalConfig *Config

// Load reads configuration from the given file (or the default search
// path), the environment, and an optional .env file.
func Load(cfgFile string) (*Config, error) {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".pressroom"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("pressroom")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)

	v.SetEnvPrefix("PRESSROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", ".pressroom-data")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "330s") // must exceed the batch budget
	v.SetDefault("server.cors.enabled", false)

	v.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	v.SetDefault("ai.gemini.timeout", "60s")

	v.SetDefault("publishing.base_url", "http://localhost:8080")
	v.SetDefault("publishing.languages", []string{"en", "es"})
	v.SetDefault("publishing.batch_budget", "300s")
	v.SetDefault("publishing.notify_timeout", "10s")
	v.SetDefault("publishing.post_timeout", "30s")
}

// bindEnvironmentVariables maps well-known raw environment variables onto
// config keys, in addition to the PRESSROOM_* prefix.
func bindEnvironmentVariables(v *viper.Viper) {
	bindEnvKeys(v, "ai.gemini.api_key", []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY"})
	bindEnvKeys(v, "server.cron_secret", []string{"CRON_SECRET"})
	bindEnvKeys(v, "publishing.social.token", []string{"SOCIAL_API_TOKEN"})
}

func bindEnvKeys(v *viper.Viper, key string, envVars []string) {
	args := append([]string{key}, envVars...)
	_ = v.BindEnv(args...)
}
