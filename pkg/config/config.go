package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applogger "FinFolio/pkg/logger"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Log         applogger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline struct {
		MaxTransitions       int     `yaml:"max_transitions" default:"20" validate:"gte=9"`
		OutputDir            string  `yaml:"output_dir" default:"output" validate:"required"`
		Benchmark            string  `yaml:"benchmark" default:"^GSPC" validate:"required"`
		RiskFreeRate         float64 `yaml:"risk_free_rate" default:"0.045"`
		ExpectedMarketReturn float64 `yaml:"expected_market_return" default:"0.09"`
		MinPeriodsForBeta    int     `yaml:"min_periods_for_beta" default:"60" validate:"gte=2"`
		DefaultYears         int     `yaml:"default_years" default:"5" validate:"gte=1"`
	} `yaml:"pipeline"`
	LLM struct {
		BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1" validate:"required,url"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"gpt-4o" validate:"required"`
		Temperature float64       `yaml:"temperature" default:"0.1" validate:"gte=0,lte=2"`
		Timeout     time.Duration `yaml:"timeout" default:"90s"`
		MaxRetries  int           `yaml:"max_retries" default:"2" validate:"gte=0,lte=10"`
		Breaker     struct {
			MaxFailures uint32        `yaml:"max_failures" default:"3"`
			OpenTimeout time.Duration `yaml:"open_timeout" default:"60s"`
		} `yaml:"breaker"`
	} `yaml:"llm"`
	MarketData struct {
		Source       string        `yaml:"source" default:"yahoo" validate:"oneof=yahoo clickhouse"`
		BaseURL      string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"required,url"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
		RequestDelay time.Duration `yaml:"request_delay" default:"500ms"`
		Cache        struct {
			Enabled bool          `yaml:"enabled" default:"true"`
			TTL     time.Duration `yaml:"ttl" default:"6h"`
		} `yaml:"cache"`
	} `yaml:"market_data"`
	Finnhub struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url" default:"https://finnhub.io/api/v1" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"finnhub"`
	News struct {
		APIKey     string        `yaml:"api_key"`
		BaseURL    string        `yaml:"base_url" default:"https://api.tavily.com" validate:"required,url"`
		MaxResults int           `yaml:"max_results" default:"3" validate:"gte=1,lte=20"`
		Timeout    time.Duration `yaml:"timeout" default:"20s"`
	} `yaml:"news"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"finfolio"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"finfolio"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		Archive      bool          `yaml:"archive"`
		Table        string        `yaml:"table" default:"daily_closes"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecution time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"finfolio.runs"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads a YAML configuration file on top of the struct defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("MARKET_DATA_SOURCE"); v != "" {
		c.MarketData.Source = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Pipeline.OutputDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.MarketData.Source == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for market_data.source 'clickhouse'")
	}
	if c.Pipeline.ExpectedMarketReturn < c.Pipeline.RiskFreeRate {
		return fmt.Errorf("pipeline.expected_market_return (%.4f) must not be below risk_free_rate (%.4f)",
			c.Pipeline.ExpectedMarketReturn, c.Pipeline.RiskFreeRate)
	}
	return nil
}
