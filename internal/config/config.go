// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the sniper.
type Config struct {
	// Detection sources
	PumpFunWSURL       string
	DexScreenerAPIURL  string
	DexScreenerPoll    time.Duration

	// Enrichment
	EnrichTimeout      time.Duration
	EnrichWorkers      int
	EnrichRateInterval time.Duration

	// Execution providers
	DirectTradeURL  string
	DirectAPIKey    string
	QuoteAPIURL     string
	SwapAPIURL      string
	SolanaRPCURL    string
	TradeProvider   string // "direct" | "routed"
	SignerURL       string // external signing service

	// Config store: empty DSN selects the in-memory store
	PostgresDSN string

	// Result sink: empty DSN disables the ClickHouse sink
	ClickHouseDSN string

	// HTTP server
	ListenAddr string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		PumpFunWSURL:      getEnv("PUMPFUN_WS_URL", "wss://pumpportal.fun/api/data"),
		DexScreenerAPIURL: getEnv("DEXSCREENER_API_URL", "https://api.dexscreener.com/token-profiles/latest/v1"),
		DexScreenerPoll:   getDurationEnv("DEXSCREENER_POLL_INTERVAL", 30*time.Second),

		EnrichTimeout:      getDurationEnv("ENRICH_TIMEOUT", 5*time.Second),
		EnrichWorkers:      getIntEnv("ENRICH_WORKERS", 4),
		EnrichRateInterval: getDurationEnv("ENRICH_RATE_INTERVAL", 500*time.Millisecond),

		DirectTradeURL: getEnv("DIRECT_TRADE_URL", "https://pumpportal.fun/api"),
		DirectAPIKey:   getEnv("DIRECT_API_KEY", ""),
		QuoteAPIURL:    getEnv("QUOTE_API_URL", "https://quote-api.jup.ag/v6"),
		SwapAPIURL:     getEnv("SWAP_API_URL", "https://quote-api.jup.ag/v6"),
		SolanaRPCURL:   getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		TradeProvider:  getEnv("TRADE_PROVIDER", "routed"),
		SignerURL:      getEnv("SIGNER_URL", "http://localhost:8700"),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
