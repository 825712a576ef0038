// File: cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-leasegate/internal/auth"
	"go-leasegate/internal/config"
	"go-leasegate/internal/control"
	"go-leasegate/internal/events"
	"go-leasegate/internal/handlers"
	"go-leasegate/internal/lease"
	"go-leasegate/internal/metrics"
	"go-leasegate/internal/routes"
	"go-leasegate/internal/scheduler"
	"go-leasegate/internal/services"
	"go-leasegate/internal/settlement"
	"go-leasegate/internal/store"
	"go-leasegate/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found. Reading from environment.")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("FATAL: Could not open store: %v", err)
	}
	queue, err := openQueue(ctx, cfg)
	if err != nil {
		log.Fatalf("FATAL: Could not open revocation queue: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	issuer, err := auth.NewIssuer(cfg.ServiceTokenSecret, cfg.ServiceTokenTTL)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	var publisher control.Publisher = control.LogPublisher{}
	if cfg.MQTTBroker != "" {
		mq, err := control.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 5*time.Second)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer mq.Close()
		publisher = mq
	} else {
		log.Println("WARN: MQTT_BROKER not set. Control commands will only be logged.")
	}

	var bus events.Publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		bus = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("INFO: Publishing lease events to Kafka topic %s", cfg.KafkaTopic)
	}
	defer bus.Close()

	leases := lease.NewManager(cfg.LeaseUnitDuration, nil)
	dispatcher := control.NewDispatcher(cfg.ControlBaseURL, issuer, cfg.ControlTimeout)
	revoker := scheduler.NewRevoker(st, queue, leases, dispatcher, bus, m)
	sched := scheduler.New(queue, revoker, scheduler.Options{
		Workers:      cfg.SchedulerWorkers,
		PollInterval: cfg.SchedulerPollInterval,
		Metrics:      m,
	})

	flutterwave := services.NewFlutterwave(cfg.FlutterwaveBaseURL, cfg.FlutterwaveSecretKey, cfg.ProcessorTimeout)
	svc := settlement.NewService(settlement.Deps{
		Store: st,
		Verifiers: map[string]services.Verifier{
			services.ProviderFlutterwave:       flutterwave,
			services.ProviderPaystack:          services.NewPaystackCharges(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.ProcessorTimeout),
			services.ProviderPaystackTransfers: services.NewPaystackTransfers(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.ProcessorTimeout),
		},
		Leases:     leases,
		Scheduler:  sched,
		Dispatcher: dispatcher,
		Events:     bus,
		Metrics:    m,
	})

	h := handlers.New(svc, flutterwave, st, control.NewIngress(st, leases, publisher))
	if cfg.FlutterwaveWebhookHash == "" {
		log.Println("WARN: FLUTTERWAVE_WEBHOOK_HASH not set. Flutterwave webhooks will be rejected.")
	}
	router := routes.SetupRouter(cfg.FrontendURL, h, webhook.NewGate(cfg.PaystackWebhookSecret),
		webhook.NewSecretHash(cfg.FlutterwaveWebhookHash), issuer, m)

	go sched.Run(ctx)
	go scheduler.NewSweeper(st, revoker, cfg.SweepInterval, nil).Run(ctx)

	listenAddr := fmt.Sprintf(":%s", cfg.GinPort)
	srv := &http.Server{Addr: listenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: Graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("🚀 Starting lease gate server at: http://localhost%s", listenAddr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("FATAL: Could not start server: %v", err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		s := store.NewMemoryStore()
		if cfg.SeedFile != "" {
			if err := store.LoadSeed(s, cfg.SeedFile); err != nil {
				return nil, err
			}
			log.Printf("INFO: In-memory store seeded from %s", cfg.SeedFile)
		}
		return s, nil
	}
	db, err := store.Open(cfg.DatabaseURL, cfg.GinMode != gin.ReleaseMode)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}

func openQueue(ctx context.Context, cfg *config.Config) (scheduler.Queue, error) {
	if cfg.QueueDriver == "memory" {
		log.Println("WARN: Using in-memory revocation queue. Pending jobs are lost on restart.")
		return scheduler.NewMemoryQueue(cfg.SchedulerVisibility), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Printf("INFO: Revocation queue backed by Redis at %s", cfg.RedisAddr)
	return scheduler.NewRedisQueue(rdb, "", cfg.SchedulerVisibility), nil
}
