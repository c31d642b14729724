package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Bot struct {
		TrainingDataFile string `yaml:"training_data_file"`
		// "global" reproduces the original single-slot dedup behaviour,
		// "per_user" keys the processed-message cache by user as well.
		DedupScope            string `yaml:"dedup_scope"`
		SessionTTLMinutes     int64  `yaml:"session_ttl_minutes"`
		DedupTTLHours         int64  `yaml:"dedup_ttl_hours"`
		GeocodeTimeoutSeconds int64  `yaml:"geocode_timeout_seconds"`
	} `yaml:"bot"`
	Geocoder struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"geocoder"`
	Notifier struct {
		Enabled             bool     `yaml:"enabled"`
		KafkaBrokers        []string `yaml:"kafka_brokers"`
		UnknownMessageTopic string   `yaml:"unknown_message_topic"`
		ConsumerGroup       string   `yaml:"consumer_group"`
	} `yaml:"notifier"`
	Telegram struct {
		Enabled       bool   `yaml:"enabled"`
		BotToken      string `yaml:"bot_token"`
		TrainerChatID int64  `yaml:"trainer_chat_id"`
	} `yaml:"telegram"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.TrainingDataFile == "" {
		c.Bot.TrainingDataFile = "trainingdata.json"
	}
	if c.Bot.DedupScope == "" {
		c.Bot.DedupScope = "global"
	}
	if c.Bot.SessionTTLMinutes <= 0 {
		c.Bot.SessionTTLMinutes = 10
	}
	if c.Bot.DedupTTLHours <= 0 {
		c.Bot.DedupTTLHours = 24
	}
	if c.Bot.GeocodeTimeoutSeconds <= 0 {
		c.Bot.GeocodeTimeoutSeconds = 10
	}
	if c.Geocoder.URL == "" {
		c.Geocoder.URL = "https://api.opencagedata.com"
	}
}
