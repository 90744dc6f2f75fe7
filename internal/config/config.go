package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const configPathEnv = "AGGREGATOR_CONFIG_PATH"

type AggregatorConfig struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	GRPCServer   `yaml:"grpc_server"`
	AggregatorDB `yaml:"aggregator_db"`
	LogConfig    `yaml:"log_config"`
	KafkaService `yaml:"kafka-service"`
	RedisService `yaml:"redis-service"`
	Routing      `yaml:"routing"`
	SLAMonitor   `yaml:"sla_monitor"`
	Callbacks    `yaml:"callbacks"`
	Jobs         `yaml:"jobs"`
}

type HTTPServer struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

type AggregatorDB struct {
	// пустой DSN - хранилище в памяти
	Dsn            string `yaml:"dsn" env:"AGGREGATOR_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"AGGREGATOR_MIGRATIONS_PATH" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type KafkaService struct {
	Enabled bool   `yaml:"enabled" env:"KAFKA_ENABLED"`
	Host    string `yaml:"host" env:"KAFKA_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"KAFKA_PORT" env-default:"9092"`
	Topic   string `yaml:"topic" env:"KAFKA_TOPIC" env-default:"deal-events"`
}

type RedisService struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	URL     string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

type Routing struct {
	CallbackURL    string        `yaml:"callback_url" env:"ROUTING_CALLBACK_URL"`
	DealTTL        time.Duration `yaml:"deal_ttl" env-default:"20m"`
	PartnerTimeout time.Duration `yaml:"partner_timeout" env-default:"10s"`
}

type SLAMonitor struct {
	Window   time.Duration `yaml:"window" env-default:"1h"`
	Interval time.Duration `yaml:"interval" env-default:"5m"`
}

type Callbacks struct {
	MaxBatchSize   int     `yaml:"max_batch_size" env-default:"100"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env-default:"50"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env-default:"100"`
}

type Jobs struct {
	ExpiryInterval      time.Duration `yaml:"expiry_interval" env-default:"30s"`
	ExpiryBatchSize     int           `yaml:"expiry_batch_size" env-default:"200"`
	VolumeResetInterval time.Duration `yaml:"volume_reset_interval" env-default:"10m"`
}

func (c *AggregatorConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%s", c.HTTPServer.Host, c.HTTPServer.Port)
}

func (c *AggregatorConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%s", c.GRPCServer.Host, c.GRPCServer.Port)
}

func (c *AggregatorConfig) KafkaAddr() string {
	return fmt.Sprintf("%s:%s", c.KafkaService.Host, c.KafkaService.Port)
}

// Load reads the YAML file at path, environment variables override it
func Load(path string) (*AggregatorConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg AggregatorConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if cfg.Callbacks.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("callbacks.max_batch_size must be positive")
	}
	return &cfg, nil
}

func MustLoad() *AggregatorConfig {

	// Processing env config variable and file
	configPath := os.Getenv(configPathEnv)

	if configPath == "" {
		log.Fatalf("%s was not found\n", configPathEnv)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	return cfg
}
