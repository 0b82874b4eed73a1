package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	ShipWatch ShipWatchConfig `yaml:"shipwatch"`
}

type StoreConfig struct {
	// "file" (по умолчанию) или "postgres".
	Backend  string         `yaml:"backend"`
	FilePath string         `yaml:"file_path"`
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type ShipWatchConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	NotifyWebhookURL string `yaml:"notify_webhook_url"`

	PollIntervalSeconds     int `yaml:"poll_interval_seconds"`
	StartupDelaySeconds     int `yaml:"startup_delay_seconds"`
	PollConcurrency         int `yaml:"poll_concurrency"`
	ProviderTimeoutSeconds  int `yaml:"provider_timeout_seconds"`
	RateLimitPerMinute      int `yaml:"rate_limit_per_minute"`
	CurrentStatusTTLSeconds int `yaml:"current_status_ttl_seconds"`

	// "api" — реальная цепочка API+scrape, "fake" — локальная заглушка.
	ProviderMode      string `yaml:"provider_mode"`
	TrackerAPIBaseURL string `yaml:"tracker_api_base_url"`
	ScrapeBaseURL     string `yaml:"scrape_base_url"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
