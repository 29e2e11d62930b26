package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lumenpos/finengine/internal/config"
	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/handler"
	"github.com/lumenpos/finengine/internal/infra/cache"
	"github.com/lumenpos/finengine/internal/infra/client"
	"github.com/lumenpos/finengine/internal/infra/clock"
	"github.com/lumenpos/finengine/internal/infra/memstore"
	"github.com/lumenpos/finengine/internal/infra/observability"
	"github.com/lumenpos/finengine/internal/infra/resilience"
	"github.com/lumenpos/finengine/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("directory_api_url", cfg.DirectoryAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("account_lock_wait", cfg.LockWait),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finengine")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store := memstore.New()
	seedAccounts(store, cfg, metrics, logger)

	// --- Cache ---
	summaryCache := cache.New[*domain.FinancialSummary](cfg.CacheTTL)

	// --- Services ---
	clk := clock.Real{}
	locks := service.NewAccountLocks(cfg.LockWait)
	policy := service.NewAllocationPolicy(cfg.AllocationRatios)
	classifier := service.NewActivityClassifier(nil)

	ledgerSvc := service.NewLedgerService(store, clk, locks, metrics, logger)
	cashflowSvc := service.NewCashFlowService(store, clk, classifier, metrics, logger)
	reconSvc := service.NewReconciliationService(store, ledgerSvc, clk, locks, metrics, logger)
	eodSvc := service.NewEndOfDayService(store, clk, locks, metrics, logger)
	reportSvc := service.NewReportService(store, clk, policy, summaryCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Ledger:         ledgerSvc,
		CashFlow:       cashflowSvc,
		Reconciliation: reconSvc,
		EndOfDay:       eodSvc,
		Reports:        reportSvc,
	}, metrics, cfg.JWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// seedAccounts fills the account directory. When DIRECTORY_API_URL is
// configured the accounts come from the external directory service;
// otherwise a single primary operating account is seeded so the engine
// is usable standalone.
func seedAccounts(store *memstore.Store, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) {
	if cfg.DirectoryAPIURL != "" {
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("directory")
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		directory := client.NewDirectoryClient(httpClient, cfg.DirectoryAPIURL, cb, resilienceCfg)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()

		accounts, err := directory.ListAccounts(ctx)
		if err != nil {
			metrics.IncrExternalError("directory")
			logger.Fatal("failed to load accounts from directory", zap.Error(err))
		}
		for _, acct := range accounts {
			store.SeedAccount(acct)
		}
		logger.Info("accounts loaded from directory",
			zap.String("directory_api_url", cfg.DirectoryAPIURL),
			zap.Int("count", len(accounts)),
		)
		return
	}

	store.SeedAccount(domain.BankAccount{
		ID:        "acc-operating",
		Name:      "Operating Account",
		Currency:  "EUR",
		IsActive:  true,
		IsPrimary: true,
		CreatedAt: time.Now().UTC(),
	})
	logger.Info("no directory configured, seeded default operating account")
}
