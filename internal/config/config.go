package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var validate = validator.New()

type AppConfig struct {
	Port      string `validate:"required,numeric"`
	DataFile  string `validate:"required"`
	PublicDir string

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=console json"`

	CORSOrigins string `validate:"required"`

	// IntegrityCheckInterval controls how often the data file is compared with memory (0 = disabled).
	IntegrityCheckInterval time.Duration `validate:"gte=0"`
	ShutdownTimeout        time.Duration `validate:"gt=0"`

	// Mirror fan-out of accepted readings.
	MirrorQueueSize int `validate:"gt=0"`
	Influx          InfluxConfig
	Kafka           KafkaConfig
}

// InfluxConfig enables the InfluxDB mirror when URL is set.
type InfluxConfig struct {
	URL    string `validate:"omitempty,url"`
	Token  string
	Org    string `validate:"required_with=URL"`
	Bucket string `validate:"required_with=URL"`
}

// Enabled reports whether the InfluxDB mirror is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// KafkaConfig enables the Kafka mirror when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string `validate:"required_with=Brokers"`
}

// Enabled reports whether the Kafka mirror is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// Load reads configuration from the environment (and an optional .env file) with sensible defaults.
func Load(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "3000")
	v.SetDefault("DATA_FILE", "temperature_data.json")
	v.SetDefault("PUBLIC_DIR", "public")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("INTEGRITY_CHECK_INTERVAL", "5m")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MIRROR_QUEUE_SIZE", 256)
	v.SetDefault("INFLUX_BUCKET", "temperature")
	v.SetDefault("KAFKA_TOPIC", "temperature.readings")

	cfg := &AppConfig{
		Port:            v.GetString("PORT"),
		DataFile:        v.GetString("DATA_FILE"),
		PublicDir:       v.GetString("PUBLIC_DIR"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		CORSOrigins:     v.GetString("CORS_ORIGINS"),
		MirrorQueueSize: v.GetInt("MIRROR_QUEUE_SIZE"),
		Influx: InfluxConfig{
			URL:    v.GetString("INFLUX_URL"),
			Token:  v.GetString("INFLUX_TOKEN"),
			Org:    v.GetString("INFLUX_ORG"),
			Bucket: v.GetString("INFLUX_BUCKET"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
	}

	interval, err := time.ParseDuration(v.GetString("INTEGRITY_CHECK_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid INTEGRITY_CHECK_INTERVAL: %w", err)
	}
	cfg.IntegrityCheckInterval = interval

	shutdown, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout = shutdown

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
