package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"promptschola/internal/analytics"
	"promptschola/internal/billing"
	"promptschola/internal/entitlement"
	"promptschola/internal/identity"
	"promptschola/internal/llm"
	"promptschola/internal/platform/config"
	"promptschola/internal/platform/database"
	"promptschola/internal/platform/httpserver"
	"promptschola/internal/platform/logger"
	"promptschola/internal/platform/metrics"
	platformredis "promptschola/internal/platform/redis"
	httpapi "promptschola/internal/transport/http"
	"promptschola/internal/tutor"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal domain
// packages.
func main() {
	// Local development convenience; absent .env files are fine.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		// Not fatal: the resolver fails open to the free tier until the
		// schema catches up.
		log.Warn("migrations failed; entitlement lookups will fail open", "error", err)
	}

	m := metrics.New()

	var tierCache entitlement.TierCache
	redisClient, err := platformredis.New(cfg.RedisURL)
	switch {
	case err != nil:
		log.Warn("redis unavailable, using in-process tier cache", "error", err)
		tierCache = entitlement.NewMemoryTierCache(cfg.TierCacheTTL)
	case redisClient != nil:
		defer redisClient.Close()
		tierCache = entitlement.NewRedisTierCache(redisClient.Client, cfg.TierCacheTTL)
	default:
		tierCache = entitlement.NewMemoryTierCache(cfg.TierCacheTTL)
	}

	entitlementStore := entitlement.NewPostgres(db)
	resolver := entitlement.NewResolver(entitlementStore, log,
		entitlement.WithTierCache(tierCache),
		entitlement.WithMetrics(m),
	)

	verifier := identity.NewJWTVerifier(cfg.JWTVerificationKey)

	completer := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, log,
		llm.WithRateLimit(5, 10))

	analyticsService := analytics.NewService(analytics.NewPostgres(db), log)

	billingClient := billing.NewHTTPClient("https://api.stripe.com", cfg.BillingAPIKey)
	billingService := billing.NewService(billingClient, entitlementStore, resolver, log,
		cfg.BillingPriceID, cfg.PublicBaseURL)
	billingVerifier := billing.NewSignatureVerifier(cfg.BillingWebhookSecret,
		billing.DefaultSignatureTolerance, time.Now)

	tutorService := tutor.NewService(resolver, completer, log, m)

	router := httpapi.NewRouter(httpapi.Deps{
		Verifier:  verifier,
		Tutor:     tutor.NewHandler(tutorService, analyticsService, log),
		Billing:   billing.NewHandler(billingService, billingVerifier, log),
		Analytics: analytics.NewHandler(analyticsService, log),
		Logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting promptschola server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
