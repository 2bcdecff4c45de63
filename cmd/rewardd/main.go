// Package main implements rewardd, the conversation reward payout service.
// It pays CONVO token rewards from the treasury account, burns the protocol
// share, and enforces per-wallet daily caps.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/convoai/reward-layer/internal/chain"
	"github.com/convoai/reward-layer/internal/config"
	"github.com/convoai/reward-layer/internal/keys"
	"github.com/convoai/reward-layer/internal/metrics"
	"github.com/convoai/reward-layer/internal/middleware"
	"github.com/convoai/reward-layer/internal/rewards"
	"github.com/convoai/reward-layer/internal/treasury"
	"github.com/convoai/reward-layer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	if v := os.Getenv("CONFIG_PATH"); v != "" && *configPath == "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.SeedPhrase == "" {
		log.Fatal("TREASURY_SEED_PHRASE is required")
	}

	appLog := logger.NewDefault("rewardd")
	appLog.WithField("network", cfg.Network).
		WithField("listen_addr", cfg.ListenAddr).
		Info("starting reward service")

	// Chain client and treasury engine
	mint, err := solana.PublicKeyFromBase58(cfg.MintAddress)
	if err != nil {
		log.Fatalf("Invalid mint address: %v", err)
	}
	burn, err := solana.PublicKeyFromBase58(cfg.BurnAddress)
	if err != nil {
		log.Fatalf("Invalid burn address: %v", err)
	}

	client, err := chain.NewClient(chain.Config{
		RPCURL:     cfg.ResolveRPCURL(),
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		log.Fatalf("Failed to create chain client: %v", err)
	}

	engine := treasury.NewEngine(client, keys.NewTreasury(cfg.SeedPhrase), treasury.Config{
		Mint:           mint,
		BurnAddress:    burn,
		ConfirmTimeout: time.Duration(cfg.ConfirmTimeoutSeconds) * time.Second,
	}, logger.NewDefault("treasury"))

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := engine.Validate(startupCtx); err != nil {
		startupCancel()
		log.Fatalf("Treasury validation failed: %v", err)
	}
	startupCancel()

	// Daily limit store: Redis when configured, in-process otherwise
	var limits rewards.LimitStore
	var memoryLimits *rewards.MemoryLimitStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		limits = rewards.NewRedisLimitStore(rdb)
		appLog.WithField("redis_addr", cfg.RedisAddr).Info("using Redis daily limit store")
	} else {
		memoryLimits = rewards.NewMemoryLimitStore()
		limits = memoryLimits
		appLog.Info("using in-memory daily limit store")
	}

	// Grant store: Postgres when configured, in-process otherwise
	var grants rewards.GrantStore
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to open Postgres: %v", err)
		}
		defer db.Close()
		pg := rewards.NewPostgresGrantStore(db)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Failed to ensure grant schema: %v", err)
		}
		grants = pg
		appLog.Info("using Postgres grant store")
	} else {
		grants = rewards.NewMemoryGrantStore()
		appLog.Info("using in-memory grant store")
	}

	svc := rewards.NewService(engine, limits, grants, rewards.Config{
		DailyCapTokens:    cfg.DailyCapTokens,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, logger.NewDefault("rewards"))

	// Background janitors
	stop := make(chan struct{})
	svc.RateLimiter().StartCleanup(10*time.Minute, stop)

	janitor := cron.New()
	if memoryLimits != nil {
		// Spent day counters are useless after the UTC day rolls over.
		_, err := janitor.AddFunc("10 0 * * *", func() {
			evicted := memoryLimits.EvictBefore(rewards.UTCDay(time.Now()))
			appLog.WithField("evicted", evicted).Info("evicted stale daily counters")
		})
		if err != nil {
			log.Fatalf("Failed to schedule limit eviction: %v", err)
		}
	}
	janitor.Start()

	// HTTP server
	mux := http.NewServeMux()
	rewards.NewHTTPHandler(svc).RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)
	handler := metrics.InstrumentHandler(cors.Handler(mux))

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second, // transfer confirmation can take a while
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLog.WithField("addr", cfg.ListenAddr).Info("reward API listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	appLog.Info("shutting down")
	close(stop)
	janitor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("server shutdown error")
	}
	appLog.Info("reward service stopped")
}
