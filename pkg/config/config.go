package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Cache struct {
		Backend string        `yaml:"backend"` // memory or redis
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Edgar struct {
		BaseURL           string        `yaml:"base_url"`
		TickerMapURL      string        `yaml:"ticker_map_url"`
		UserAgent         string        `yaml:"user_agent"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		MaxRetries        int           `yaml:"max_retries"`
		BackoffBase       time.Duration `yaml:"backoff_base"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"edgar"`
	Finnhub struct {
		APIKey            string        `yaml:"api_key"`
		BaseURL           string        `yaml:"base_url"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Timeout           time.Duration `yaml:"timeout"`
	} `yaml:"finnhub"`
	OpenAI struct {
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float32       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxRetries  int           `yaml:"max_retries"`
	} `yaml:"openai"`
	Analysis struct {
		MaxTurns    int           `yaml:"max_turns"`
		ToolTimeout time.Duration `yaml:"tool_timeout"`
	} `yaml:"analysis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// Credentials come from the environment in most deployments, so validation
// runs after the overrides are applied.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("EDGAR_USER_AGENT"); v != "" {
		c.Edgar.UserAgent = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Streamed analyses hold the response open across many model turns.
		c.Server.WriteTimeout = 10 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 15 * time.Minute
	}
	if c.Edgar.BaseURL == "" {
		c.Edgar.BaseURL = "https://data.sec.gov"
	}
	if c.Edgar.TickerMapURL == "" {
		c.Edgar.TickerMapURL = "https://www.sec.gov/files/company_tickers.json"
	}
	if c.Edgar.RequestsPerSecond == 0 {
		c.Edgar.RequestsPerSecond = 10
	}
	if c.Edgar.MaxRetries == 0 {
		c.Edgar.MaxRetries = 3
	}
	if c.Edgar.BackoffBase == 0 {
		c.Edgar.BackoffBase = 500 * time.Millisecond
	}
	if c.Edgar.Timeout == 0 {
		c.Edgar.Timeout = 30 * time.Second
	}
	if c.Finnhub.BaseURL == "" {
		c.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Finnhub.RequestsPerSecond == 0 {
		c.Finnhub.RequestsPerSecond = 20
	}
	if c.Finnhub.Timeout == 0 {
		c.Finnhub.Timeout = 30 * time.Second
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.OpenAI.MaxTokens == 0 {
		c.OpenAI.MaxTokens = 8192
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 3 * time.Minute
	}
	if c.OpenAI.MaxRetries == 0 {
		c.OpenAI.MaxRetries = 3
	}
	if c.Analysis.MaxTurns == 0 {
		c.Analysis.MaxTurns = 12
	}
	if c.Analysis.ToolTimeout == 0 {
		c.Analysis.ToolTimeout = time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Edgar.UserAgent == "" {
		return fmt.Errorf("edgar.user_agent is required by the SEC access policy")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub.api_key is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	return nil
}
