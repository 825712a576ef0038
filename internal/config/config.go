package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	GinMode     string
	GinPort     string
	FrontendURL string

	StoreDriver string
	DatabaseURL string
	SeedFile    string

	QueueDriver   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FlutterwaveSecretKey   string
	FlutterwaveBaseURL     string
	FlutterwaveWebhookHash string
	PaystackSecretKey      string
	PaystackBaseURL        string
	PaystackWebhookSecret  string
	ProcessorTimeout       time.Duration

	ControlBaseURL     string
	ControlTimeout     time.Duration
	ServiceTokenSecret string
	ServiceTokenTTL    time.Duration

	MQTTBroker   string
	MQTTClientID string
	KafkaBrokers []string
	KafkaTopic   string

	LeaseUnitDuration     time.Duration
	SchedulerWorkers      int
	SchedulerPollInterval time.Duration
	SchedulerVisibility   time.Duration
	SweepInterval         time.Duration
}

// Load reads configuration from the environment, falling back to an
// optional config.yaml in the working directory. Keys are the environment
// variable names in lower case.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("gin_port", "8002")
	v.SetDefault("store_driver", "postgres")
	v.SetDefault("queue_driver", "redis")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("processor_timeout", 30*time.Second)
	v.SetDefault("control_timeout", 10*time.Second)
	v.SetDefault("service_token_ttl", 5*time.Minute)
	v.SetDefault("mqtt_client_id", "leasegate")
	v.SetDefault("kafka_topic", "leasegate.events")
	v.SetDefault("lease_unit_duration", 24*time.Hour)
	v.SetDefault("scheduler_workers", 4)
	v.SetDefault("scheduler_poll_interval", time.Second)
	v.SetDefault("scheduler_visibility", time.Minute)
	v.SetDefault("sweep_interval", 5*time.Minute)

	getEnv := func(key string, required bool) (string, error) {
		value := strings.TrimSpace(v.GetString(strings.ToLower(key)))
		if value == "" && required {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg := &Config{}
	var err error

	cfg.GinMode, _ = getEnv("GIN_MODE", false)
	cfg.GinPort, _ = getEnv("GIN_PORT", false)
	cfg.FrontendURL, _ = getEnv("FRONTEND_URL", false)

	cfg.StoreDriver, _ = getEnv("STORE_DRIVER", false)
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL, err = getEnv("DATABASE_URL", true); err != nil {
			return nil, err
		}
	case "memory":
		cfg.SeedFile, _ = getEnv("SEED_FILE", false)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}

	cfg.QueueDriver, _ = getEnv("QUEUE_DRIVER", false)
	switch cfg.QueueDriver {
	case "redis":
		cfg.RedisAddr, _ = getEnv("REDIS_ADDR", false)
		cfg.RedisPassword, _ = getEnv("REDIS_PASSWORD", false)
		cfg.RedisDB = v.GetInt("redis_db")
	case "memory":
	default:
		return nil, fmt.Errorf("unknown QUEUE_DRIVER %q (want redis or memory)", cfg.QueueDriver)
	}

	if cfg.FlutterwaveSecretKey, err = getEnv("FLUTTERWAVE_SECRET_KEY", true); err != nil {
		return nil, err
	}
	cfg.FlutterwaveBaseURL, _ = getEnv("FLUTTERWAVE_BASE_URL", false)
	cfg.FlutterwaveWebhookHash, _ = getEnv("FLUTTERWAVE_WEBHOOK_HASH", false)
	if cfg.PaystackSecretKey, err = getEnv("PAYSTACK_SECRET_KEY", true); err != nil {
		return nil, err
	}
	cfg.PaystackBaseURL, _ = getEnv("PAYSTACK_BASE_URL", false)
	if cfg.PaystackWebhookSecret, err = getEnv("PAYSTACK_WEBHOOK_SECRET", true); err != nil {
		return nil, err
	}
	cfg.ProcessorTimeout = v.GetDuration("processor_timeout")

	cfg.ControlBaseURL, _ = getEnv("CONTROL_BASE_URL", false)
	if cfg.ControlBaseURL == "" {
		cfg.ControlBaseURL = "http://localhost:" + cfg.GinPort
	}
	cfg.ControlTimeout = v.GetDuration("control_timeout")
	if cfg.ServiceTokenSecret, err = getEnv("SERVICE_TOKEN_SECRET", true); err != nil {
		return nil, err
	}
	cfg.ServiceTokenTTL = v.GetDuration("service_token_ttl")

	cfg.MQTTBroker, _ = getEnv("MQTT_BROKER", false)
	cfg.MQTTClientID, _ = getEnv("MQTT_CLIENT_ID", false)
	if brokers, _ := getEnv("KAFKA_BROKERS", false); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	cfg.KafkaTopic, _ = getEnv("KAFKA_TOPIC", false)

	cfg.LeaseUnitDuration = v.GetDuration("lease_unit_duration")
	if cfg.LeaseUnitDuration <= 0 {
		return nil, fmt.Errorf("LEASE_UNIT_DURATION must be positive, got %s", cfg.LeaseUnitDuration)
	}
	cfg.SchedulerWorkers = v.GetInt("scheduler_workers")
	cfg.SchedulerPollInterval = v.GetDuration("scheduler_poll_interval")
	cfg.SchedulerVisibility = v.GetDuration("scheduler_visibility")
	cfg.SweepInterval = v.GetDuration("sweep_interval")

	return cfg, nil
}
