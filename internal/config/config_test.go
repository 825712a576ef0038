package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://leasegate@localhost/leasegate")
	t.Setenv("FLUTTERWAVE_SECRET_KEY", "FLWSECK_TEST")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test")
	t.Setenv("PAYSTACK_WEBHOOK_SECRET", "whsec")
	t.Setenv("SERVICE_TOKEN_SECRET", "svc")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GinPort != "8002" || cfg.StoreDriver != "postgres" || cfg.QueueDriver != "redis" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.LeaseUnitDuration != 24*time.Hour || cfg.ProcessorTimeout != 30*time.Second {
		t.Fatalf("durations = %s, %s", cfg.LeaseUnitDuration, cfg.ProcessorTimeout)
	}
	if cfg.ControlBaseURL != "http://localhost:8002" {
		t.Fatalf("control base url = %q", cfg.ControlBaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LEASE_UNIT_DURATION", "1m")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("QUEUE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SCHEDULER_WORKERS", "8")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LeaseUnitDuration != time.Minute {
		t.Fatalf("unit = %s, want 1m", cfg.LeaseUnitDuration)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SchedulerWorkers != 8 || cfg.StoreDriver != "memory" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name, key, value, want string
	}{
		{"missing secret", "SERVICE_TOKEN_SECRET", "", "SERVICE_TOKEN_SECRET"},
		{"zero unit", "LEASE_UNIT_DURATION", "0s", "LEASE_UNIT_DURATION"},
		{"bad driver", "STORE_DRIVER", "sqlite", "STORE_DRIVER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)
			_, err := load(viper.New())
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %s", err, tc.want)
			}
		})
	}
}
