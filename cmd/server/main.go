package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"veriflow/internal/attempt"
	attemptPublisher "veriflow/internal/attempt/publisher"
	attemptStore "veriflow/internal/attempt/store"
	jwttoken "veriflow/internal/jwt_token"
	ledgerHandler "veriflow/internal/ledger/handler"
	ledgerService "veriflow/internal/ledger/service"
	ledgerStore "veriflow/internal/ledger/store"
	"veriflow/internal/platform/config"
	"veriflow/internal/platform/httpserver"
	"veriflow/internal/platform/logger"
	platformRedis "veriflow/internal/platform/redis"
	httptransport "veriflow/internal/transport/http"
	"veriflow/internal/verification/client"
	"veriflow/internal/verification/gate"
	verifyHandler "veriflow/internal/verification/handler"
	verifyMetrics "veriflow/internal/verification/metrics"
	"veriflow/internal/verification/poller"
	"veriflow/internal/verification/profile"
	"veriflow/internal/verification/renderer"
	verifyService "veriflow/internal/verification/service"
	"veriflow/internal/verification/upload"
	"veriflow/pkg/platform/circuit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := verifyMetrics.New(registry)

	// Ledger storage: PostgreSQL when configured, memory otherwise.
	memLedger := ledgerStore.NewMemory()
	var accounts ledgerStore.AccountStore = memLedger
	var codes ledgerStore.CodeStore = memLedger
	var attempts attemptStore.Store = attemptStore.NewMemory()
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		if err := ledgerStore.EnsureSchema(ctx, db); err != nil {
			log.Error("ledger schema", "error", err)
			os.Exit(1)
		}
		if err := attemptStore.EnsureSchema(ctx, db); err != nil {
			log.Error("attempt schema", "error", err)
			os.Exit(1)
		}
		pg := ledgerStore.NewPostgres(db)
		accounts, codes = pg, pg
		attempts = attemptStore.NewPostgres(db)
	}

	// Cooldowns prefer Redis so they survive restarts.
	var cooldowns ledgerStore.CooldownStore = memLedger
	redisClient, err := platformRedis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cooldowns = ledgerStore.NewRedisCooldown(redisClient.Client)
	}

	ledgerSvc, err := ledgerService.New(accounts, codes, cooldowns,
		ledgerService.WithLogger(log),
		ledgerService.WithCheckInReward(int64(cfg.CheckInReward)),
	)
	if err != nil {
		log.Error("ledger service", "error", err)
		os.Exit(1)
	}

	// Attempt history worker, optionally fanning out to Kafka.
	recorderOpts := []attempt.Option{attempt.WithLogger(log)}
	if len(cfg.KafkaSeeds) > 0 {
		pub, err := attemptPublisher.NewKafka(ctx, cfg.KafkaSeeds, cfg.KafkaTopic,
			attemptPublisher.WithLogger(log))
		if err != nil {
			log.Error("kafka publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		recorderOpts = append(recorderOpts, attempt.WithPublisher(pub))
	}
	recorder := attempt.NewRecorder(attempts, recorderOpts...)
	go func() {
		if err := recorder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("attempt recorder stopped", "error", err)
		}
	}()

	// Verification flow engine. The breaker fails flows fast while the
	// remote API is down instead of burning a full timeout per step.
	upstreamBreaker := circuit.New("upstream-verification",
		circuit.WithFailureThreshold(5),
		circuit.WithSuccessThreshold(2),
	)
	flowClient, err := client.New(
		cfg.UpstreamBaseURL,
		profile.New(profile.WithLogger(log)),
		renderer.New(renderer.WithLogger(log)),
		upload.New(
			upload.WithLogger(log),
			upload.WithHTTPClient(&http.Client{Timeout: cfg.UploadTimeout}),
		),
		client.WithLogger(log),
		client.WithMetrics(metrics),
		client.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		client.WithBreaker(upstreamBreaker),
	)
	if err != nil {
		log.Error("verification client", "error", err)
		os.Exit(1)
	}
	statusPoller, err := poller.New(cfg.UpstreamBaseURL,
		poller.WithWindow(cfg.PollWindow, cfg.PollInterval),
		poller.WithLogger(log),
		poller.WithMetrics(metrics),
	)
	if err != nil {
		log.Error("status poller", "error", err)
		os.Exit(1)
	}
	verifySvc, err := verifyService.New(flowClient, statusPoller, gate.New(cfg.PermitCapacity),
		verifyService.WithLogger(log),
		verifyService.WithMetrics(metrics),
		verifyService.WithRecorder(recorder),
	)
	if err != nil {
		log.Error("verification service", "error", err)
		os.Exit(1)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(httptransport.Deps{
		Verification: verifyHandler.New(verifySvc, ledgerSvc, int64(cfg.VerifyCost), log),
		Ledger:       ledgerHandler.New(ledgerSvc, log),
		JWTValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		AdminToken:   cfg.AdminToken,
		Registry:     registry,
		Logger:       log,
		RateLimit:    cfg.RateLimit,
		RateWindow:   cfg.RateWindow,
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("veriflow listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
