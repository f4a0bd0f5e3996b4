package config

import (
	"fmt"
	"os"
	"strings"
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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Harvester struct {
		ListenAddr string `yaml:"listen_addr"`
		MaxRPS     int    `yaml:"max_rps"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"harvester"`
	Pipeline struct {
		Timeframes  []int `yaml:"timeframes"`
		QueueSize   int   `yaml:"queue_size"`
		LiveUpdates bool  `yaml:"live_updates"`
		MaxBuffer   int   `yaml:"max_buffer"`
		ResetGap    int   `yaml:"reset_gap"`
	} `yaml:"pipeline"`
	Funnel struct {
		Window        time.Duration `yaml:"window"`
		BaseRiskPct   float64       `yaml:"base_risk_pct"`
		MinInvestment float64       `yaml:"min_investment"`
		MaxInvestment float64       `yaml:"max_investment"`
		DelayMinMs    int           `yaml:"delay_min_ms"`
		DelayMaxMs    int           `yaml:"delay_max_ms"`
		Balance       float64       `yaml:"balance"`
	} `yaml:"funnel"`
	Telemetry struct {
		Enabled         bool `yaml:"enabled"`
		ClientQueueSize int  `yaml:"client_queue_size"`
	} `yaml:"telemetry"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		OrdersTopic      string   `yaml:"orders_topic"`
		OutcomesTopic    string   `yaml:"outcomes_topic"`
		TradeEventsTopic string   `yaml:"trade_events_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
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
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
		PrimeAssets      []string      `yaml:"prime_assets"`
		PrimeDepth       int           `yaml:"prime_depth"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
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
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("HARVESTER_LISTEN_ADDR"); v != "" {
		c.Harvester.ListenAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if len(c.Pipeline.Timeframes) == 0 {
		c.Pipeline.Timeframes = []int{60, 300, 900}
	}
	if c.Funnel.Window == 0 {
		c.Funnel.Window = 2 * time.Second
	}
	if c.Funnel.BaseRiskPct == 0 {
		c.Funnel.BaseRiskPct = 0.02
	}
	if c.Funnel.MinInvestment == 0 {
		c.Funnel.MinInvestment = 1
	}
	if c.Funnel.MaxInvestment == 0 {
		c.Funnel.MaxInvestment = 100
	}
	if c.Funnel.DelayMinMs == 0 {
		c.Funnel.DelayMinMs = 400
	}
	if c.Funnel.DelayMaxMs == 0 {
		c.Funnel.DelayMaxMs = 2200
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.ClickHouse.PrimeDepth == 0 {
		c.ClickHouse.PrimeDepth = 100
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Harvester.ListenAddr == "" {
		return fmt.Errorf("harvester.listen_addr is required")
	}
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	for _, tf := range c.Pipeline.Timeframes {
		if tf <= 0 {
			return fmt.Errorf("pipeline.timeframes must be positive, got %d", tf)
		}
	}
	if c.Funnel.DelayMaxMs < c.Funnel.DelayMinMs {
		return fmt.Errorf("funnel.delay_max_ms must be >= funnel.delay_min_ms")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.OrdersTopic == "" {
			return fmt.Errorf("kafka.orders_topic is required when kafka is enabled")
		}
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required when redis is enabled")
	}
	return nil
}
