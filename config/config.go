package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Mode is one of streaming, batch or speech.
	Mode       string           `yaml:"mode"`
	Audio      AudioConfig      `yaml:"audio"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Display    DisplayConfig    `yaml:"display"`
	Kiosk      KioskConfig      `yaml:"kiosk"`
	Pushover   PushoverConfig   `yaml:"pushover"`
	Ingress    IngressConfig    `yaml:"ingress"`
	Log        LogConfig        `yaml:"log"`
}

type AudioConfig struct {
	// Source is microphone or file.
	Source     string `yaml:"source"`
	FilePath   string `yaml:"file_path"`
	FileLoop   bool   `yaml:"file_loop"`
	SampleRate int    `yaml:"sample_rate"`
	ChunkSize  int    `yaml:"chunk_size"`
}

type RecognizerConfig struct {
	URL string `yaml:"url"`
}

type WebhookConfig struct {
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
	Timeout  string `yaml:"timeout"`
}

type SupervisorConfig struct {
	Interval string `yaml:"interval"`
}

type DisplayConfig struct {
	MessageTTL string `yaml:"message_ttl"`
	StatusTTL  string `yaml:"status_ttl"`
}

type KioskConfig struct {
	// Catalog is a file path or an http(s) URL.
	Catalog         string `yaml:"catalog"`
	CatalogAttempts int    `yaml:"catalog_attempts"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

type IngressConfig struct {
	Addr       string `yaml:"addr"`
	AuthToken  string `yaml:"auth_token"`
	RateLimit  int    `yaml:"rate_limit"`
	RateWindow string `yaml:"rate_window"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = "streaming"
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.ChunkSize == 0 {
		c.Audio.ChunkSize = 1024
	}
	if c.Recognizer.URL == "" {
		c.Recognizer.URL = "ws://localhost:8011"
	}
	if c.Webhook.Language == "" {
		c.Webhook.Language = "ko-KR"
	}
	if c.Webhook.Timeout == "" {
		c.Webhook.Timeout = "30s"
	}
	if c.Supervisor.Interval == "" {
		c.Supervisor.Interval = "5s"
	}
	if c.Display.MessageTTL == "" {
		c.Display.MessageTTL = "5s"
	}
	if c.Display.StatusTTL == "" {
		c.Display.StatusTTL = "3s"
	}
	if c.Kiosk.Catalog == "" {
		c.Kiosk.Catalog = "catalog.yaml"
	}
	if c.Kiosk.CatalogAttempts == 0 {
		c.Kiosk.CatalogAttempts = 5
	}
	if c.Pushover.Title == "" {
		c.Pushover.Title = "Kiosk"
	}
	if c.Ingress.Addr == "" {
		c.Ingress.Addr = ":8080"
	}
	if c.Ingress.RateLimit == 0 {
		c.Ingress.RateLimit = 30
	}
	if c.Ingress.RateWindow == "" {
		c.Ingress.RateWindow = "1m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case "streaming", "batch", "speech":
	default:
		return fmt.Errorf("unknown mode %q (want streaming, batch or speech)", c.Mode)
	}

	switch c.Audio.Source {
	case "microphone":
	case "file":
		if c.Audio.FilePath == "" {
			return fmt.Errorf("audio.file_path is required for the file source")
		}
	default:
		return fmt.Errorf("unknown audio source %q", c.Audio.Source)
	}

	return nil
}
