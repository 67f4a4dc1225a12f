package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"style-shopper/internal/types"
)

// Settings mirrors the environment. Durations accept Go syntax ("30s", "1m").
type Settings struct {
	DataDir            string        `mapstructure:"DATA_DIR"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRetries         int           `mapstructure:"MAX_RETRIES"`
	RequestDelay       time.Duration `mapstructure:"REQUEST_DELAY"`
	UseHeadlessBrowser bool          `mapstructure:"USE_HEADLESS_BROWSER"`
	BrowserPath        string        `mapstructure:"BROWSER_PATH"`
	UserAgent          string        `mapstructure:"USER_AGENT"`
	SezaneFetchMode    string        `mapstructure:"SEZANE_FETCH_MODE"`
	ArketFetchMode     string        `mapstructure:"ARKET_FETCH_MODE"`

	AnthropicAPIKey  string        `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string        `mapstructure:"ANTHROPIC_BASE_URL"`
	VisionModel      string        `mapstructure:"VISION_MODEL"`
	ModelTimeout     time.Duration `mapstructure:"MODEL_TIMEOUT"`
	ModelRPS         float64       `mapstructure:"MODEL_RPS"`

	MatchWorkers int `mapstructure:"MATCH_WORKERS"`
	MatchLimit   int `mapstructure:"MATCH_LIMIT"`
	MinScore     int `mapstructure:"MIN_SCORE"`

	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	SQLitePath  string        `mapstructure:"SQLITE_PATH"`
	RedisAddr   string        `mapstructure:"REDIS_ADDR"`
	CacheTTL    time.Duration `mapstructure:"CACHE_TTL"`
	ServerPort  string        `mapstructure:"SERVER_PORT"`
	LogLevel    string        `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present) and the process environment into a Config
func Load() (*types.Config, error) {
	// Missing .env is fine; production config comes from the environment
	_ = godotenv.Load()

	settings, err := readSettings(viper.New())
	if err != nil {
		return nil, err
	}
	return settings.ToConfig(), nil
}

func readSettings(v *viper.Viper) (*Settings, error) {
	setDefaults(v)
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("DATA_DIR", d.DataDir)
	v.SetDefault("REQUEST_TIMEOUT", d.Timeout)
	v.SetDefault("MAX_RETRIES", d.MaxRetries)
	v.SetDefault("REQUEST_DELAY", d.RequestDelay)
	v.SetDefault("USE_HEADLESS_BROWSER", d.UseHeadlessBrowser)
	v.SetDefault("BROWSER_PATH", "")
	v.SetDefault("USER_AGENT", d.UserAgent)
	v.SetDefault("SEZANE_FETCH_MODE", string(d.FetchModes["sezane"]))
	v.SetDefault("ARKET_FETCH_MODE", string(d.FetchModes["arket"]))

	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("ANTHROPIC_BASE_URL", d.ModelBaseURL)
	v.SetDefault("VISION_MODEL", d.VisionModel)
	v.SetDefault("MODEL_TIMEOUT", d.ModelTimeout)
	v.SetDefault("MODEL_RPS", d.ModelRPS)

	v.SetDefault("MATCH_WORKERS", d.MatchWorkers)
	v.SetDefault("MATCH_LIMIT", d.MatchLimit)
	v.SetDefault("MIN_SCORE", d.MinScore)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", d.CacheTTL)
	v.SetDefault("SERVER_PORT", d.ServerPort)
	v.SetDefault("LOG_LEVEL", "")
}

func (s *Settings) validate() error {
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", s.RequestTimeout)
	}
	if s.ModelTimeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be positive, got %s", s.ModelTimeout)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative, got %d", s.MaxRetries)
	}
	if s.MatchWorkers < 1 {
		return fmt.Errorf("MATCH_WORKERS must be at least 1, got %d", s.MatchWorkers)
	}
	if s.MinScore < 0 || s.MinScore > 10 {
		return fmt.Errorf("MIN_SCORE must be between 0 and 10, got %d", s.MinScore)
	}
	for key, mode := range map[string]string{"SEZANE_FETCH_MODE": s.SezaneFetchMode, "ARKET_FETCH_MODE": s.ArketFetchMode} {
		switch strings.ToLower(strings.TrimSpace(mode)) {
		case string(types.FetchStatic), string(types.FetchBrowser):
		default:
			return fmt.Errorf("%s must be %q or %q, got %q", key, types.FetchStatic, types.FetchBrowser, mode)
		}
	}
	return nil
}

// ToConfig converts the settings into the runtime configuration
func (s *Settings) ToConfig() *types.Config {
	config := types.DefaultConfig()

	config.DataDir = s.DataDir
	config.Timeout = s.RequestTimeout
	config.MaxRetries = s.MaxRetries
	config.RequestDelay = s.RequestDelay
	config.UseHeadlessBrowser = s.UseHeadlessBrowser
	config.BrowserPath = s.BrowserPath
	config.UserAgent = s.UserAgent
	config.FetchModes = map[string]types.FetchMode{
		"sezane": types.ParseFetchMode(s.SezaneFetchMode),
		"arket":  types.ParseFetchMode(s.ArketFetchMode),
	}

	config.ModelAPIKey = s.AnthropicAPIKey
	config.ModelBaseURL = strings.TrimRight(s.AnthropicBaseURL, "/")
	config.VisionModel = s.VisionModel
	config.ModelTimeout = s.ModelTimeout
	config.ModelRPS = s.ModelRPS

	config.MatchWorkers = s.MatchWorkers
	config.MatchLimit = s.MatchLimit
	config.MinScore = s.MinScore

	config.DatabaseURL = s.DatabaseURL
	config.SQLitePath = s.SQLitePath
	config.RedisAddr = s.RedisAddr
	config.CacheTTL = s.CacheTTL
	config.ServerPort = s.ServerPort
	config.LogLevel = s.LogLevel
	return config
}
