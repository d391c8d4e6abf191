// internal/common/config/loader.go
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

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like SUPABASE_URL
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations
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
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf("⚠️  .env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
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
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	// Supabase
	if cfg.Database.Supabase.URL == "" {
		if val := os.Getenv("SUPABASE_URL"); val != "" {
			cfg.Database.Supabase.URL = val
		}
	}
	if cfg.Database.Supabase.APIKey == "" {
		if val := os.Getenv("SUPABASE_KEY"); val != "" {
			cfg.Database.Supabase.APIKey = val
		}
	}

	// Completion providers
	if cfg.LLM.Groq.APIKey == "" {
		if val := os.Getenv("GROQ_API_KEY"); val != "" {
			cfg.LLM.Groq.APIKey = val
		}
	}
	if cfg.LLM.Anthropic.APIKey == "" {
		if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
			cfg.LLM.Anthropic.APIKey = val
		}
	}

	// Web search
	if cfg.APIs.WebSearch.APIKey == "" {
		if val := os.Getenv("SERPER_API_KEY"); val != "" {
			cfg.APIs.WebSearch.APIKey = val
		}
	}

	// Database overrides
	if cfg.Database.SQL.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.SQL.User = val
		}
	}
	if cfg.Database.SQL.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.SQL.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Dataset defaults
	if cfg.Dataset.Table == "" {
		cfg.Dataset.Table = "ibama_infracao"
	}
	if cfg.Dataset.PageSize == 0 {
		cfg.Dataset.PageSize = 1000
	}
	if cfg.Dataset.MaxPages == 0 {
		cfg.Dataset.MaxPages = 100
	}

	// Database defaults
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "supabase"
	}
	if cfg.Database.Supabase.MaxRows == 0 {
		cfg.Database.Supabase.MaxRows = 50000
	}
	if cfg.Database.Supabase.Timeout == 0 {
		cfg.Database.Supabase.Timeout = 30000
	}
	if cfg.Database.SQL.Driver == "" {
		cfg.Database.SQL.Driver = "sqlite"
	}
	if cfg.Database.SQL.MaxConnections == 0 {
		cfg.Database.SQL.MaxConnections = 25
	}
	if cfg.Database.SQL.MaxIdle == 0 {
		cfg.Database.SQL.MaxIdle = 5
	}
	if cfg.Database.SQL.SSLMode == "" {
		cfg.Database.SQL.SSLMode = "disable"
	}

	// Cache defaults
	if cfg.Cache.MaxAge == 0 {
		cfg.Cache.MaxAge = 3600
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "infraction:query"
	}

	// Analytics defaults
	if cfg.Analytics.NameMatchThreshold == 0 {
		cfg.Analytics.NameMatchThreshold = 95
	}
	if cfg.Analytics.TopLimit == 0 {
		cfg.Analytics.TopLimit = 10
	}

	// Provider defaults
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "groq"
	}
	if cfg.LLM.Groq.BaseURL == "" {
		cfg.LLM.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Groq.Model == "" {
		cfg.LLM.Groq.Model = "llama-3.3-70b-versatile"
	}
	if cfg.LLM.Groq.MaxTokens == 0 {
		cfg.LLM.Groq.MaxTokens = 1024
	}
	if cfg.LLM.Groq.Timeout == 0 {
		cfg.LLM.Groq.Timeout = 60000
	}
	if cfg.LLM.Anthropic.Endpoint == "" {
		cfg.LLM.Anthropic.Endpoint = "https://api.anthropic.com/v1/messages"
	}
	if cfg.LLM.Anthropic.Model == "" {
		cfg.LLM.Anthropic.Model = "claude-3-5-haiku-latest"
	}
	if cfg.LLM.Anthropic.Version == "" {
		cfg.LLM.Anthropic.Version = "2023-06-01"
	}
	if cfg.LLM.Anthropic.MaxTokens == 0 {
		cfg.LLM.Anthropic.MaxTokens = 1024
	}
	if cfg.LLM.Anthropic.Timeout == 0 {
		cfg.LLM.Anthropic.Timeout = 60000
	}

	// Web search defaults
	if cfg.APIs.WebSearch.BaseURL == "" {
		cfg.APIs.WebSearch.BaseURL = "https://google.serper.dev/search"
	}
	if cfg.APIs.WebSearch.Country == "" {
		cfg.APIs.WebSearch.Country = "br"
	}
	if cfg.APIs.WebSearch.Language == "" {
		cfg.APIs.WebSearch.Language = "pt-br"
	}
	if cfg.APIs.WebSearch.MaxResults == 0 {
		cfg.APIs.WebSearch.MaxResults = 3
	}
	if cfg.APIs.WebSearch.Timeout == 0 {
		cfg.APIs.WebSearch.Timeout = 10000
	}

	// Refresh defaults
	if cfg.Refresh.Hour == 0 {
		cfg.Refresh.Hour = 10
	}
	if cfg.Refresh.Timezone == "" {
		cfg.Refresh.Timezone = "America/Sao_Paulo"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Database.Backend {
	case "supabase":
		if cfg.Database.Supabase.URL == "" {
			return fmt.Errorf("database.supabase.url is required")
		}
		if cfg.Database.Supabase.APIKey == "" {
			return fmt.Errorf("database.supabase.api_key is required")
		}
	case "sql":
		// GetDSN always synthesizes a string, so validate the raw inputs.
		if cfg.Database.SQL.DSN == "" && cfg.Database.SQL.Host == "" {
			return fmt.Errorf("database.sql.dsn or host settings are required")
		}
	default:
		return fmt.Errorf("database.backend must be \"supabase\" or \"sql\", got %q", cfg.Database.Backend)
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}

	if cfg.Refresh.Hour < 0 || cfg.Refresh.Hour > 23 {
		return fmt.Errorf("refresh.hour must be between 0 and 23")
	}

	if cfg.Analytics.NameMatchThreshold < 0 || cfg.Analytics.NameMatchThreshold > 100 {
		return fmt.Errorf("analytics.name_match_threshold must be between 0 and 100")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
