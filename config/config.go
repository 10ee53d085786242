package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		Mode           string   `yaml:"mode"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Gemini struct {
		ApiKey      string        `yaml:"apiKey"`
		Model       string        `yaml:"model"`
		Temperature float32       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"gemini"`

	Speech struct {
		Provider       string        `yaml:"provider"` // google or whisper
		LanguageCode   string        `yaml:"languageCode"`
		GoogleApiKey   string        `yaml:"googleApiKey"`
		OpenaiApiKey   string        `yaml:"openaiApiKey"`
		UploadDir      string        `yaml:"uploadDir"`
		MaxUploadBytes int64         `yaml:"maxUploadBytes"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"speech"`

	Events struct {
		Provider string `yaml:"provider"` // none, log, redis or kafka
		Redis    struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Stream   string `yaml:"stream"`
			MaxLen   int64  `yaml:"maxLen"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
	} `yaml:"events"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 5000
	cfg.Server.Mode = "release"
	cfg.Gemini.Model = "gemini-1.5-flash"
	cfg.Speech.Provider = "google"
	cfg.Speech.LanguageCode = "en-US"
	cfg.Speech.MaxUploadBytes = 10 << 20
	cfg.Events.Provider = "none"
	cfg.Events.Redis.Addr = "localhost:6379"
	cfg.Events.Redis.Stream = "coach:events"
	cfg.Events.Redis.MaxLen = 10000
	cfg.Events.Kafka.Topic = "coach.events"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return &cfg
}

// LoadConfig reads the configuration file on top of the defaults and then
// applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	setString(&c.Server.Mode, "GIN_MODE")
	setString(&c.Gemini.ApiKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")
	setString(&c.Speech.Provider, "SPEECH_PROVIDER")
	setString(&c.Speech.GoogleApiKey, "GOOGLE_SPEECH_API_KEY")
	setString(&c.Speech.OpenaiApiKey, "OPENAI_API_KEY")
	setString(&c.Speech.UploadDir, "UPLOAD_DIR")
	setString(&c.Events.Provider, "EVENTS_PROVIDER")
	setString(&c.Events.Redis.Addr, "REDIS_ADDR")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Kafka.Brokers = splitList(v)
	}
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	return nil
}

// Validate checks that the service can start with this configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	if c.Gemini.ApiKey == "" {
		return fmt.Errorf("gemini api key is required (GEMINI_API_KEY)")
	}
	switch c.Speech.Provider {
	case "google":
	case "whisper":
		if c.Speech.OpenaiApiKey == "" {
			return fmt.Errorf("whisper speech provider requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown speech provider %q", c.Speech.Provider)
	}
	if c.Speech.MaxUploadBytes <= 0 {
		return fmt.Errorf("speech.maxUploadBytes must be positive")
	}
	switch c.Events.Provider {
	case "", "none", "log", "redis":
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka events provider requires at least one broker")
		}
	default:
		return fmt.Errorf("unknown events provider %q", c.Events.Provider)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
