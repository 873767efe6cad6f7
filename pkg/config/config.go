package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ORBLab/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst"`
			PerSecond float64 `yaml:"per_second"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Backend struct {
		Type    string `yaml:"type"`
		Breaker struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
			Timeout             time.Duration `yaml:"timeout"`
		} `yaml:"breaker"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		OutcomesTopic string   `yaml:"outcomes_topic"`
		RequestsTopic string   `yaml:"requests_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		MaxConnections   int           `yaml:"max_connections"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		PoolSize int           `yaml:"pool_size"`
		MinIdle  int           `yaml:"min_idle"`
		L1TTL    time.Duration `yaml:"l1_ttl"`
	} `yaml:"redis"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// BacktestConfig holds engine parameters and registry locations.
type BacktestConfig struct {
	Workers        int           `yaml:"workers"`
	RangeMinutes   int           `yaml:"range_minutes"`
	ScanHorizon    time.Duration `yaml:"scan_horizon"`
	Rule           string        `yaml:"rule"`
	AggMinutes     int           `yaml:"agg_minutes"`
	Timezone       string        `yaml:"timezone"`
	StrategiesFile string        `yaml:"strategies_file"`
	CostsFile      string        `yaml:"costs_file"`
	BarsCSVDir     string        `yaml:"bars_csv_dir"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// RangeDuration returns the opening range length.
func (b BacktestConfig) RangeDuration() time.Duration {
	return time.Duration(b.RangeMinutes) * time.Minute
}

// Location loads the session timezone.
func (b BacktestConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("backtest.timezone: %w", err)
	}
	return loc, nil
}

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies ORB_* environment overrides,
// then validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML and fills defaults. It does not validate.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.setDefaults()
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Kafka.OutcomesTopic == "" {
		c.Kafka.OutcomesTopic = "orb.outcomes"
	}
	if c.Kafka.RequestsTopic == "" {
		c.Kafka.RequestsTopic = "orb.backtest.requests"
	}
	b := &c.Backtest
	if b.Workers == 0 {
		b.Workers = 4
	}
	if b.RangeMinutes == 0 {
		b.RangeMinutes = 5
	}
	if b.ScanHorizon == 0 {
		b.ScanHorizon = 4 * time.Hour
	}
	if b.Rule == "" {
		b.Rule = "first_close"
	}
	if b.AggMinutes == 0 {
		b.AggMinutes = 5
	}
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ORB_ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("ORB_BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := getenv("ORB_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
	}
	if v := getenv("ORB_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("ORB_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("ORB_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("ORB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	c.Server.Port = util.ParseIntDefault(getenv("ORB_PORT"), c.Server.Port)
	c.Backtest.Workers = util.ParseIntDefault(getenv("ORB_WORKERS"), c.Backtest.Workers)
	if v := getenv("ORB_STRATEGIES_FILE"); v != "" {
		c.Backtest.StrategiesFile = v
	}
	if v := getenv("ORB_COSTS_FILE"); v != "" {
		c.Backtest.CostsFile = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty for the kafka backend")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
		}
	case "memory":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse' or 'memory', got '%s'", c.Backend.Type)
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when the consumer is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return c.Backtest.Validate()
}

// Validate checks engine parameters. The CLI uses it without the service sections.
func (b BacktestConfig) Validate() error {
	switch {
	case b.Workers < 1:
		return fmt.Errorf("backtest.workers must be >= 1")
	case b.RangeMinutes < 1:
		return fmt.Errorf("backtest.range_minutes must be >= 1")
	case b.ScanHorizon <= 0:
		return fmt.Errorf("backtest.scan_horizon must be positive")
	case b.StrategiesFile == "":
		return fmt.Errorf("backtest.strategies_file is required")
	case b.CostsFile == "":
		return fmt.Errorf("backtest.costs_file is required")
	}
	if b.Rule == "aggregated_close" && b.AggMinutes < 2 {
		return fmt.Errorf("backtest.agg_minutes must be >= 2 for aggregated_close")
	}
	if _, err := b.Location(); err != nil {
		return err
	}
	return nil
}
