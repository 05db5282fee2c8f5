package main

import (
	"io"
	"log"
	"testing"

	"solana-token-sniper/internal/config"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/wallet"
)

func testSigner(t *testing.T) wallet.Signer {
	t.Helper()
	s, err := wallet.NewHTTPSigner("http://localhost:8700")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func TestBuildDispatcher_MissingCredentialDisablesOnlyThatProvider(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	// No routed endpoints: routed is skipped, direct stays usable.
	cfg := &config.Config{
		DirectTradeURL: "https://pumpportal.fun/api",
		DirectAPIKey:   "key",
		TradeProvider:  "direct",
	}
	d := buildDispatcher(cfg, testSigner(t), logger)
	if !d.Registered(execution.ProviderDirect) {
		t.Error("direct provider must be registered")
	}
	if d.Registered(execution.ProviderRouted) {
		t.Error("routed provider must be skipped without its endpoints")
	}

	// No direct API key: direct is skipped, routed stays usable.
	cfg = &config.Config{
		DirectTradeURL: "https://pumpportal.fun/api",
		QuoteAPIURL:    "https://quote-api.jup.ag/v6",
		SolanaRPCURL:   "https://api.mainnet-beta.solana.com",
		TradeProvider:  "routed",
	}
	d = buildDispatcher(cfg, testSigner(t), logger)
	if d.Registered(execution.ProviderDirect) {
		t.Error("direct provider must be skipped without an API key")
	}
	if !d.Registered(execution.ProviderRouted) {
		t.Error("routed provider must be registered")
	}
	if d.Provider() != execution.ProviderRouted {
		t.Errorf("selected provider = %s, want routed", d.Provider())
	}
}
