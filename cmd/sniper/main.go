package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-token-sniper/internal/config"
	"solana-token-sniper/internal/configstore"
	"solana-token-sniper/internal/configstore/memory"
	pgstore "solana-token-sniper/internal/configstore/postgres"
	"solana-token-sniper/internal/connector"
	"solana-token-sniper/internal/enrich"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/matching"
	"solana-token-sniper/internal/normalize"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/pipeline"
	"solana-token-sniper/internal/repository"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/sink"
	chsink "solana-token-sniper/internal/sink/clickhouse"
	"solana-token-sniper/internal/stats"
	"solana-token-sniper/internal/wallet"
)

func main() {
	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	// Result window backing the stats endpoint; also the first fanout sink.
	window := sink.NewWindow(sink.DefaultWindowSize)

	// Metrics, health and stats server
	if cfg.ListenAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
				agg := stats.Compute(window.Recent(), time.Now())
				w.Header().Set("Content-Type", "application/json")
				if err := json.NewEncoder(w).Encode(agg); err != nil {
					logger.Printf("Stats encode error: %v", err)
				}
			})
			logger.Printf("Starting HTTP server on %s", cfg.ListenAddr)
			if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("HTTP server error: %v", err)
			}
		}()
	}

	err := run(ctx, logger, cfg, window)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Runner error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// buildDispatcher registers every constructible trade provider. A provider
// missing its credential is logged and skipped; the others remain usable.
func buildDispatcher(cfg *config.Config, signer wallet.Signer, logger *log.Logger) *execution.Dispatcher {
	dispatcher := execution.NewDispatcher(logger)

	if direct, err := execution.NewDirectExecutor(cfg.DirectTradeURL, cfg.DirectAPIKey); err != nil {
		logger.Printf("Direct provider disabled: %v", err)
	} else {
		dispatcher.Register(execution.ProviderDirect, direct)
	}

	if routed, err := execution.NewRoutedExecutor(cfg.QuoteAPIURL, cfg.SwapAPIURL, cfg.SolanaRPCURL, signer); err != nil {
		logger.Printf("Routed provider disabled: %v", err)
	} else {
		dispatcher.Register(execution.ProviderRouted, routed)
	}

	dispatcher.SelectProvider(cfg.TradeProvider)
	return dispatcher
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, window *sink.Window) error {
	// Config store: Postgres when a DSN is given, in-memory otherwise
	var store configstore.Store
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if _, err := pool.Exec(ctx, pgstore.Schema); err != nil {
			return err
		}
		store = pgstore.NewStore(pool, logger)
		logger.Println("Using PostgreSQL config store")
	} else {
		store = memory.NewStore()
		logger.Println("Using in-memory config store")
	}

	cache := configstore.NewCache(store, logger)
	if err := cache.Load(ctx); err != nil {
		return err
	}
	go func() {
		if err := cache.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("Config watch stopped: %v", err)
		}
	}()

	repo := repository.New(repository.DefaultCapacity)

	enricher := enrich.New(enrich.Options{
		Workers:         cfg.EnrichWorkers,
		Timeout:         cfg.EnrichTimeout,
		RequestInterval: cfg.EnrichRateInterval,
		Logger:          logger,
	}, pipeline.ApplyEnrichment(repo))

	signer, err := wallet.NewHTTPSigner(cfg.SignerURL)
	if err != nil {
		return err
	}

	dispatcher := buildDispatcher(cfg, signer, logger)

	// Result sinks: in-memory window always, ClickHouse when configured
	sinks := sink.Fanout{window}
	if cfg.ClickHouseDSN != "" {
		conn, err := chsink.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.Exec(ctx, chsink.Schema); err != nil {
			return err
		}
		sinks = append(sinks, chsink.NewSink(conn))
		logger.Println("ClickHouse result sink enabled")
	}

	connectors := []connector.SourceConnector{
		connector.NewWSConnector(connector.WSOptions{
			Name:            "pumpfun-ws",
			Endpoint:        cfg.PumpFunWSURL,
			SubscribeMethod: "subscribeNewToken",
			NotifyMethod:    "newToken",
			Logger:          logger,
		}),
		connector.NewPollConnector(connector.PollOptions{
			Name:     "dexscreener-api",
			Endpoint: cfg.DexScreenerAPIURL,
			Interval: cfg.DexScreenerPoll,
			Logger:   logger,
		}),
	}

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Connectors: connectors,
		Normalizer: normalize.NewNormalizer(),
		Dedup:      normalize.NewDeduplicator(normalize.DefaultDedupCeiling, normalize.DefaultDedupKeep),
		Repo:       repo,
		Enricher:   enricher,
		Engine:     matching.NewEngine(0),
		Configs:    cache,
		Safety:     safety.New(),
		Dispatcher: dispatcher,
		Signer:     signer,
		Sink:       sinks,
		Logger:     logger,
	})

	return runner.Run(ctx)
}
