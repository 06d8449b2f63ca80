package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"127.0.0.1"`
		Port            int           `yaml:"port" default:"8090" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Remote struct {
		BaseURL        string        `yaml:"base_url" default:"http://127.0.0.1:5000" validate:"required,url"`
		ValidatePath   string        `yaml:"validate_path" default:"/api/license/validate"`
		StreamPath     string        `yaml:"stream_path" default:"/api/scan/stream"`
		SnapshotPath   string        `yaml:"snapshot_path" default:"/api/scan/mock"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"15s"`
		UserAgent      string        `yaml:"user_agent" default:"scandesk/1.0"`
	} `yaml:"remote"`
	Scan struct {
		Timeframe       string        `yaml:"timeframe" default:"1m" validate:"oneof=1m 2m 3m 5m 15m"`
		Tab             string        `yaml:"tab" default:"call" validate:"oneof=call put ce pe"`
		AutoRefresh     bool          `yaml:"auto_refresh" default:"true"`
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"10m"`
		ManualRate      struct {
			Capacity int           `yaml:"capacity" default:"3"`
			Refill   time.Duration `yaml:"refill" default:"20s"`
		} `yaml:"manual_rate"`
	} `yaml:"scan"`
	Storage struct {
		Backend    string `yaml:"backend" default:"file" validate:"oneof=file sqlite redis memory"`
		Path       string `yaml:"path" default:"data/scandesk.yaml"`
		SQLitePath string `yaml:"sqlite_path" default:"data/scandesk.db"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"127.0.0.1:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"scandesk"`
		} `yaml:"redis"`
	} `yaml:"storage"`
	Journal struct {
		Backend       string        `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse"`
		BufferSize    int           `yaml:"buffer_size" default:"1024" validate:"gte=1"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
		BatchSize     int           `yaml:"batch_size" default:"100" validate:"gte=1"`
	} `yaml:"journal"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"scandesk.journal"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"127.0.0.1"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"scandesk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"4" validate:"gte=1"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"2" validate:"gte=0"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a configuration populated from struct defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. A missing file at path
// yields the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is honoured if present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SCANDESK_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SCANDESK_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SCANDESK_REMOTE_URL"); v != "" {
		c.Remote.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SCANDESK_TIMEFRAME"); v != "" {
		c.Scan.Timeframe = v
	}
	if v := os.Getenv("SCANDESK_TAB"); v != "" {
		c.Scan.Tab = strings.ToLower(v)
	}
	if v := os.Getenv("SCANDESK_AUTO_REFRESH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SCANDESK_AUTO_REFRESH: %w", err)
		}
		c.Scan.AutoRefresh = b
	}
	if v := os.Getenv("SCANDESK_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("SCANDESK_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SCANDESK_JOURNAL_BACKEND"); v != "" {
		c.Journal.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Scan.RefreshInterval <= 0 {
		return fmt.Errorf("scan.refresh_interval must be positive")
	}
	if c.Journal.Backend == "kafka" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when journal.backend is 'kafka'")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when journal.backend is 'kafka'")
		}
	}
	if c.Journal.Backend == "clickhouse" && c.ClickHouse.Database == "" {
		return fmt.Errorf("clickhouse.database is required when journal.backend is 'clickhouse'")
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("storage.redis.addr is required when storage.backend is 'redis'")
	}
	return nil
}

// Addr is the listen address of the dashboard API.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
