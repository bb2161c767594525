package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top of it and
// applies environment overrides. A missing config file is not an error.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	return build(v)
}

// LoadFromFile reads a single YAML file without the environment overlay.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful value for these, so they cannot go through applyDefaults.
	v.SetDefault("pipeline.max_retries", 2)
	v.SetDefault("pipeline.retry_delay", 1000)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} references left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	setFromEnv(&cfg.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	setFromEnv(&cfg.Providers.Groq.APIKey, "GROQ_API_KEY")
	setFromEnv(&cfg.Search.APIKey, "SERPAPI_KEY")
	setFromEnv(&cfg.Database.Postgres.User, "DB_USER")
	setFromEnv(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setFromEnv(&cfg.Camunda.BrokerAddress, "ZEEBE_ADDRESS")
}

func setFromEnv(field *string, key string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(key); val != "" {
		*field = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "precision-engine"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Providers.Timeout == 0 {
		cfg.Providers.Timeout = 120000
	}
	if cfg.Providers.Gemini.Model == "" {
		cfg.Providers.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.Providers.Groq.Model == "" {
		cfg.Providers.Groq.Model = "llama-3.1-70b-versatile"
	}
	if cfg.Providers.Groq.BaseURL == "" {
		cfg.Providers.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}

	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "https://serpapi.com/search"
	}
	if cfg.Search.Engine == "" {
		cfg.Search.Engine = "google"
	}
	if cfg.Search.Language == "" {
		cfg.Search.Language = "en"
	}
	if cfg.Search.Country == "" {
		cfg.Search.Country = "in"
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 30000
	}
	if cfg.Search.MaxSources == 0 {
		cfg.Search.MaxSources = 15
	}
	if cfg.Search.MaxQuestions == 0 {
		cfg.Search.MaxQuestions = 20
	}

	if cfg.Research.CacheTTL == 0 {
		cfg.Research.CacheTTL = 6 * 60 * 60 * 1000
	}
	if cfg.Research.CachePrefix == "" {
		cfg.Research.CachePrefix = "research:v1:"
	}
	if cfg.Research.ArchiveIndex == "" {
		cfg.Research.ArchiveIndex = "chapter-research"
	}
	if cfg.Research.MaxSources == 0 {
		cfg.Research.MaxSources = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 600000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("pipeline.max_retries must not be negative")
	}
	if cfg.Pipeline.RetryDelay < 0 {
		return fmt.Errorf("pipeline.retry_delay must not be negative")
	}
	if cfg.Providers.Timeout < 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}
	if cfg.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must be positive")
	}
	if cfg.Research.MaxSources > 15 {
		return fmt.Errorf("research.max_sources must be at most 15")
	}
	if cfg.Search.MaxSources > 15 {
		return fmt.Errorf("search.max_sources must be at most 15")
	}
	return nil
}

// ValidateForWorkers checks the settings only the Zeebe worker manager needs.
func ValidateForWorkers(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       600000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
