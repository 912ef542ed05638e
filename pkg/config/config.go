package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"StratRun/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORS            bool          `yaml:"cors"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
			Topic     string        `yaml:"topic" default:"stratrun.logs"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		TriggersTopic string   `yaml:"triggers_topic" default:"strategy.triggers"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"snappy"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"stratrun"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"strategy.triggers.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stratrun"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"stratrun"`
		PoolSize int    `yaml:"pool_size" default:"10"`
	} `yaml:"redis"`
	History struct {
		Source   string        `yaml:"source" default:"clickhouse"` // clickhouse or http
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
		Attempts int           `yaml:"attempts" default:"3"`
	} `yaml:"history"`
	Orders struct {
		Backend      string        `yaml:"backend" default:"kafka"` // kafka or clickhouse
		Topic        string        `yaml:"topic" default:"orders.target_percent"`
		MaxWeight    float64       `yaml:"max_weight" default:"4"`
		MinInterval  time.Duration `yaml:"min_interval" default:"30s"`
		BufferSize   int           `yaml:"buffer_size" default:"1000"`
		AuditSignals bool          `yaml:"audit_signals" default:"true"`
	} `yaml:"orders"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"2"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	} `yaml:"queue"`
	API struct {
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"15s"`
		RateCapacity    float64       `yaml:"rate_capacity" default:"5"`
		RateRefill      float64       `yaml:"rate_refill" default:"2"`
		EvaluateTimeout time.Duration `yaml:"evaluate_timeout" default:"10s"`
	} `yaml:"api"`
	Strategies []Strategy `yaml:"strategies"`
}

// Strategy configures one runner. Unset fields fall back to the kind's defaults.
type Strategy struct {
	Name          string   `yaml:"name"`
	Kind          string   `yaml:"kind"`
	Disabled      bool     `yaml:"disabled"`
	Lookback      int      `yaml:"indicator_lookback"`
	Frequency     string   `yaml:"indicator_freq"`
	BuyThreshold  *float64 `yaml:"buy_signal_threshold"`
	SellThreshold *float64 `yaml:"sell_signal_threshold"`
	TradeFreq     int      `yaml:"trade_freq"`
	Leverage      float64  `yaml:"leverage"`
	Securities    []string `yaml:"securities"`
	RunAtMinute   int      `yaml:"run_at_minute"`
	Tolerance     float64  `yaml:"tolerance"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (when present), the YAML file, and applies STRATRUN_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("STRATRUN_ENV"); v != "" {
		c.Environment = v
	}
	c.Server.Port = util.ParseIntDefault(getenv("STRATRUN_HTTP_PORT"), c.Server.Port)
	if v := getenv("STRATRUN_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := util.SplitList(getenv("STRATRUN_KAFKA_BROKERS")); len(v) > 0 {
		c.Kafka.Brokers = v
	}
	if v := getenv("STRATRUN_TRIGGERS_TOPIC"); v != "" {
		c.Kafka.TriggersTopic = v
	}
	if v := getenv("STRATRUN_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	c.ClickHouse.Port = util.ParseIntDefault(getenv("STRATRUN_CLICKHOUSE_PORT"), c.ClickHouse.Port)
	if v := getenv("STRATRUN_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("STRATRUN_REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := getenv("STRATRUN_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("STRATRUN_HISTORY_SOURCE"); v != "" {
		c.History.Source = v
	}
	if v := getenv("STRATRUN_HISTORY_URL"); v != "" {
		c.History.URL = v
	}
	if v := getenv("STRATRUN_ORDERS_BACKEND"); v != "" {
		c.Orders.Backend = v
	}
	if v := getenv("STRATRUN_ORDERS_TOPIC"); v != "" {
		c.Orders.Topic = v
	}
	// Only the listed strategies stay enabled.
	if names := util.SplitList(getenv("STRATRUN_STRATEGIES")); len(names) > 0 {
		keep := make(map[string]bool, len(names))
		for _, n := range names {
			keep[n] = true
		}
		for i := range c.Strategies {
			c.Strategies[i].Disabled = !keep[c.Strategies[i].Name]
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Orders.Backend {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty with orders.backend 'kafka'")
		}
		if c.Orders.Topic == "" {
			return fmt.Errorf("orders.topic is required")
		}
	case "clickhouse":
	default:
		return fmt.Errorf("orders.backend must be 'kafka' or 'clickhouse', got '%s'", c.Orders.Backend)
	}
	if c.Orders.MaxWeight <= 0 {
		return fmt.Errorf("orders.max_weight must be positive")
	}
	switch c.History.Source {
	case "clickhouse":
	case "http":
		if c.History.URL == "" {
			return fmt.Errorf("history.url is required with history.source 'http'")
		}
	default:
		return fmt.Errorf("history.source must be 'clickhouse' or 'http', got '%s'", c.History.Source)
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue.enabled requires redis.enabled")
	}
	if c.Log.Collector.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("log.collector requires kafka.brokers")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		if s.Name == "" || s.Kind == "" {
			return fmt.Errorf("strategies[%d]: name and kind are required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("strategies[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Enabled returns the strategies that are not disabled.
func (c *Config) Enabled() []Strategy {
	out := make([]Strategy, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
