// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	LLM       LLMConfig       `mapstructure:"llm"`
	APIs      APIsConfig      `mapstructure:"apis"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// DatasetConfig controls the paginated infraction fetch.
type DatasetConfig struct {
	Table    string `mapstructure:"table"`
	PageSize int    `mapstructure:"page_size"`
	MaxPages int    `mapstructure:"max_pages"`
}

type DatabaseConfig struct {
	Backend  string         `mapstructure:"backend"` // "supabase" or "sql"
	Supabase SupabaseConfig `mapstructure:"supabase"`
	SQL      SQLConfig      `mapstructure:"sql"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// SupabaseConfig targets a PostgREST endpoint.
type SupabaseConfig struct {
	URL         string `mapstructure:"url"`
	APIKey      string `mapstructure:"api_key"`
	RPCFunction string `mapstructure:"rpc_function"` // read-only SQL procedure, optional
	MaxRows     int    `mapstructure:"max_rows"`     // cap for degraded full-table fetches
	Timeout     int    `mapstructure:"timeout"`      // milliseconds
}

// SQLConfig targets a database/sql driver (modernc sqlite or lib/pq postgres).
type SQLConfig struct {
	Driver         string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN            string `mapstructure:"dsn"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
}

// GetDSN returns the connection string for the configured driver.
func (s SQLConfig) GetDSN() string {
	if s.DSN != "" {
		return s.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the session result cache.
type CacheConfig struct {
	MaxAge    int    `mapstructure:"max_age"` // seconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

type AnalyticsConfig struct {
	NameMatchThreshold int `mapstructure:"name_match_threshold"` // 0-100
	TopLimit           int `mapstructure:"top_limit"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // "groq" or "anthropic"

	Groq struct {
		APIKey    string `mapstructure:"api_key"`
		BaseURL   string `mapstructure:"base_url"`
		Model     string `mapstructure:"model"`
		MaxTokens int    `mapstructure:"max_tokens"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"groq"`

	Anthropic struct {
		APIKey    string `mapstructure:"api_key"`
		Endpoint  string `mapstructure:"endpoint"`
		Model     string `mapstructure:"model"`
		Version   string `mapstructure:"version"`
		MaxTokens int    `mapstructure:"max_tokens"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"anthropic"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	WebSearch struct {
		BaseURL    string `mapstructure:"base_url"`
		APIKey     string `mapstructure:"api_key"`
		Country    string `mapstructure:"country"`
		Language   string `mapstructure:"language"`
		MaxResults int    `mapstructure:"max_results"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"web_search"`
}

// RefreshConfig controls the daily dataset reload job.
type RefreshConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Hour     int    `mapstructure:"hour"` // 0-23, local to Timezone
	Timezone string `mapstructure:"timezone"`
}

// AlertsConfig controls refresh-failure notifications.
type AlertsConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
