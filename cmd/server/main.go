// Package main wires the docseal service: the hash registry client, the
// verifier, and their HTTP surface. Business logic lives in the internal
// services; main only builds dependencies and owns the server lifecycle.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docseal/internal/audit"
	"docseal/internal/jwtauth"
	"docseal/internal/platform/config"
	"docseal/internal/platform/database"
	"docseal/internal/platform/health"
	"docseal/internal/platform/httpserver"
	"docseal/internal/platform/kafka/producer"
	"docseal/internal/platform/logger"
	"docseal/internal/platform/middleware"
	"docseal/internal/platform/redis"
	"docseal/internal/registry/cache"
	reghandler "docseal/internal/registry/handler"
	"docseal/internal/registry/ledger"
	regmetrics "docseal/internal/registry/metrics"
	regservice "docseal/internal/registry/service"
	verhandler "docseal/internal/verifier/handler"
	vermetrics "docseal/internal/verifier/metrics"
	verservice "docseal/internal/verifier/service"
	verstore "docseal/internal/verifier/store"
	"docseal/internal/verifier/tracer"
	"docseal/pkg/platform/middleware/auth"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing docseal",
		"addr", cfg.Addr,
		"ledger_backend", cfg.Registry.Backend,
	)

	healthHandler := health.New()

	// Ledger backend.
	var registryLedger ledger.Ledger
	switch cfg.Registry.Backend {
	case "node":
		if cfg.Registry.Endpoint == "" {
			log.Error("LEDGER_ENDPOINT is required for the node backend")
			os.Exit(1)
		}
		registryLedger = ledger.NewNode(ledger.NodeConfig{
			Endpoint:        cfg.Registry.Endpoint,
			SignerKey:       cfg.Registry.SignerKey,
			ContractAddress: cfg.Registry.ContractAddress,
			Timeout:         cfg.Registry.CallTimeout,
		})
	case "postgres":
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Registry.DatabaseURL
		pool, err := database.New(dbCfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if pool == nil {
			log.Error("DATABASE_URL is required for the postgres backend")
			os.Exit(1)
		}
		defer pool.Close()
		healthHandler.RegisterCheck("database", pool.Health)
		registryLedger = ledger.NewPostgres(pool.DB())
	default:
		log.Warn("using in-memory ledger; writes are lost on restart")
		registryLedger = ledger.NewMemory()
	}

	// Verify read cache: Redis when configured, in-process otherwise.
	var verifyCache cache.VerifyCache
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		healthHandler.RegisterCheck("redis", redisClient.Health)
		verifyCache = cache.NewFailover(
			cache.NewRedis(redisClient.Client, cfg.Registry.VerifyCacheTTL),
			cache.NewMemory(cfg.Registry.VerifyCacheTTL),
			log,
		)
		log.Info("verify cache: redis with in-process fallback")
	} else {
		verifyCache = cache.NewMemory(cfg.Registry.VerifyCacheTTL)
		log.Info("verify cache: in-memory")
	}

	// Audit trail: Kafka when configured, in-memory otherwise.
	var auditor audit.Publisher
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditor = audit.NewKafkaPublisher(kafkaProducer, cfg.Kafka.AuditTopic)
		log.Info("audit trail: kafka", "topic", cfg.Kafka.AuditTopic)
	} else {
		auditor = audit.NewMemoryPublisher()
		log.Warn("audit trail: in-memory; events are lost on restart")
	}

	// Services.
	registryService := regservice.NewService(registryLedger, auditor, log,
		regservice.WithCache(verifyCache),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithCallTimeout(cfg.Registry.CallTimeout),
		regservice.WithMaxRetries(cfg.Registry.MaxRetries),
	)
	verifierService := verservice.NewService(registryService, log,
		verservice.WithTracer(tracer.NewOTel()),
		verservice.WithMetrics(vermetrics.New()),
	)
	jwtService := jwtauth.NewService(cfg.JWTSigningKey, "docseal", cfg.TokenTTL)

	registryHandler := reghandler.New(registryService, log)
	verifierHandler := verhandler.New(verifierService, verstore.NewMemory(time.Hour), cfg.VerifyBaseURL, log)

	// Router.
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.BodyLimit(1 << 20))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	registryHandler.RegisterPublic(r)
	verifierHandler.Register(r)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.ContentTypeJSON)
		protected.Use(auth.RequireAuth(jwtService, log))
		protected.Use(auth.RequireRole(log, jwtauth.RoleAuthority, jwtauth.RoleAdmin))
		registryHandler.RegisterProtected(protected)
	})

	srv := httpserver.New(cfg.Addr, r)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
