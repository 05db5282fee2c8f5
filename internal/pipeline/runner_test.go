package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"solana-token-sniper/internal/configstore"
	"solana-token-sniper/internal/configstore/memory"
	"solana-token-sniper/internal/connector"
	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/matching"
	"solana-token-sniper/internal/normalize"
	"solana-token-sniper/internal/repository"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/sink"
)

const (
	testMint   = "6MQ9dDq6siEgRShJa2xbkz6QoECHiqv6MP18FA6hov3Z"
	testWallet = "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM"
)

// stubConnector feeds scripted raw events into the runner.
type stubConnector struct {
	name    string
	events  chan domain.RawEvent
	stopped atomic.Bool
}

func newStubConnector(name string) *stubConnector {
	return &stubConnector{name: name, events: make(chan domain.RawEvent, 16)}
}

func (s *stubConnector) Name() string                  { return s.name }
func (s *stubConnector) Start(context.Context) error   { return nil }
func (s *stubConnector) Reconnect()                    {}
func (s *stubConnector) State() connector.State        { return connector.StateConnected }
func (s *stubConnector) Events() <-chan domain.RawEvent { return s.events }

func (s *stubConnector) Stop() {
	if !s.stopped.Swap(true) {
		close(s.events)
	}
}

func (s *stubConnector) push(payload string) {
	s.events <- domain.RawEvent{
		Source:     s.name,
		Payload:    []byte(payload),
		ReceivedAt: time.Now().UnixMilli(),
	}
}

// stubSigner resolves every wallet id to a fixed valid ref.
type stubSigner struct{}

func (stubSigner) Resolve(_ context.Context, walletID string) (domain.WalletRef, error) {
	return domain.WalletRef{ID: walletID, PublicKey: testWallet, Label: "test"}, nil
}

func (stubSigner) SignTransaction(_ context.Context, _, tx string) (string, error) {
	return tx, nil
}

// stubExecutor records trade submissions and always succeeds.
type stubExecutor struct {
	mu    sync.Mutex
	calls []execution.TradeParams
}

func (e *stubExecutor) ExecuteTransaction(_ context.Context, p execution.TradeParams) (*domain.TransactionResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, p)
	e.mu.Unlock()
	return &domain.TransactionResult{
		Mint:      p.Mint,
		WalletID:  p.Wallet.ID,
		Success:   true,
		Signature: "sig-" + p.Wallet.ID,
		Provider:  execution.ProviderDirect,
		AmountSOL: p.AmountSOL,
		Latency:   5 * time.Millisecond,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (e *stubExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type testHarness struct {
	runner   *Runner
	source   *stubConnector
	repo     *repository.PairRepository
	executor *stubExecutor
	window   *sink.Window
	cancel   context.CancelFunc
	done     chan error
}

// newHarness wires a full runner around in-memory collaborators and one
// enabled config, then starts it.
func newHarness(t *testing.T, cfg *domain.SniperConfig) *testHarness {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	store := memory.NewStore()
	if err := store.Put(context.Background(), cfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	cache := configstore.NewCache(store, logger)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("load configs: %v", err)
	}

	source := newStubConnector("pumpfun-ws")
	repo := repository.New(50)
	executor := &stubExecutor{}
	dispatcher := execution.NewDispatcher(logger)
	dispatcher.Register(execution.ProviderDirect, executor)
	window := sink.NewWindow(20)

	r := NewRunner(RunnerOptions{
		Connectors: []connector.SourceConnector{source},
		Normalizer: normalize.NewNormalizer(),
		Dedup:      normalize.NewDeduplicator(1000, 500),
		Repo:       repo,
		Engine:     matching.NewEngine(100),
		Configs:    cache,
		Safety:     safety.New(),
		Dispatcher: dispatcher,
		Signer:     stubSigner{},
		Sink:       window,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	h := &testHarness{runner: r, source: source, repo: repo, executor: executor, window: window, cancel: cancel, done: done}
	t.Cleanup(h.stop)
	return h
}

func (h *testHarness) stop() {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func baseConfig() *domain.SniperConfig {
	return &domain.SniperConfig{
		ID:              "cfg1",
		Name:            "test",
		Enabled:         true,
		MinLiquidityUSD: 100,
		BuyAmountSOL:    0.1,
		SlippageBps:     300,
		TradingPool:     "pump",
		SelectedWallets: []string{"w1"},
	}
}

func pumpFunPayload(name string) string {
	return fmt.Sprintf(`{"mint":%q,"name":%q,"symbol":"TST","creator":%q,"vSolInBondingCurve":30,"marketCapSol":150,"solPrice":100,"pool":"bonding"}`,
		testMint, name, testWallet)
}

func TestRunner_EventToTrade(t *testing.T) {
	h := newHarness(t, baseConfig())

	h.source.push(pumpFunPayload("Dog Moon"))

	waitFor(t, "trade result", func() bool { return len(h.window.Recent()) == 1 })

	if _, err := h.repo.Get(testMint); err != nil {
		t.Fatalf("pair not tracked: %v", err)
	}
	res := h.window.Recent()[0]
	if !res.Success || res.ConfigID != "cfg1" || res.Mint != testMint || res.WalletID != "w1" {
		t.Errorf("wrong result: %+v", res)
	}
	if got := h.executor.count(); got != 1 {
		t.Errorf("executor calls = %d, want 1", got)
	}
}

func TestRunner_DuplicateMintDropped(t *testing.T) {
	h := newHarness(t, baseConfig())

	h.source.push(pumpFunPayload("First"))
	h.source.push(pumpFunPayload("Second"))

	waitFor(t, "first trade", func() bool { return len(h.window.Recent()) >= 1 })
	time.Sleep(100 * time.Millisecond) // give a wrongly-processed duplicate time to surface

	if got := h.repo.Len(); got != 1 {
		t.Errorf("repo size = %d, want 1", got)
	}
	if got := len(h.window.Recent()); got != 1 {
		t.Errorf("results = %d, want 1", got)
	}
}

func TestRunner_DuplicateRefreshesMigrationStatus(t *testing.T) {
	h := newHarness(t, baseConfig())

	h.source.push(pumpFunPayload("First"))
	waitFor(t, "pair tracked", func() bool {
		_, err := h.repo.Get(testMint)
		return err == nil
	})

	// Follow-up sighting reports the bonding curve as complete.
	h.source.push(fmt.Sprintf(`{"mint":%q,"name":"First","symbol":"TST","vSolInBondingCurve":80,"solPrice":100,"complete":true}`, testMint))

	waitFor(t, "migration refresh", func() bool {
		p, err := h.repo.Get(testMint)
		return err == nil && p.MigrationStatus == domain.MigrationMigrated && p.LiquidityUSD == 8000
	})

	// Still a duplicate for matching purposes: one trade only.
	time.Sleep(50 * time.Millisecond)
	if got := len(h.window.Recent()); got != 1 {
		t.Errorf("results = %d, want 1", got)
	}
}

func TestRunner_PausedRepositoryDiscards(t *testing.T) {
	h := newHarness(t, baseConfig())

	h.runner.Pause()
	h.source.push(pumpFunPayload("Hidden"))
	time.Sleep(100 * time.Millisecond)

	if got := h.repo.Len(); got != 0 {
		t.Errorf("repo size = %d, want 0 while paused", got)
	}

	// The drop is permanent: resuming does not replay it.
	h.runner.Resume()
	time.Sleep(50 * time.Millisecond)
	if got := h.repo.Len(); got != 0 {
		t.Errorf("repo size = %d after resume, want 0", got)
	}
}

func TestRunner_MalformedEventIgnored(t *testing.T) {
	h := newHarness(t, baseConfig())

	h.source.push(`{"mint":"not-a-mint"`)
	h.source.push(pumpFunPayload("Good"))

	waitFor(t, "good event traded", func() bool { return len(h.window.Recent()) == 1 })
	if got := h.repo.Len(); got != 1 {
		t.Errorf("repo size = %d, want 1", got)
	}
}

func TestRunner_ConfirmationFlow(t *testing.T) {
	cfg := baseConfig()
	cfg.RequireConfirmation = true
	h := newHarness(t, cfg)

	h.source.push(pumpFunPayload("Needs Approval"))

	var pendingID string
	waitFor(t, "pending confirmation", func() bool {
		h.runner.mu.Lock()
		defer h.runner.mu.Unlock()
		for id := range h.runner.pending {
			pendingID = id
		}
		return pendingID != ""
	})

	if got := h.executor.count(); got != 0 {
		t.Fatalf("trade dispatched before confirmation: %d calls", got)
	}

	decision := h.runner.Confirm(pendingID)
	if !decision.Authorized {
		t.Fatalf("confirm rejected: %+v", decision)
	}
	waitFor(t, "confirmed trade", func() bool { return len(h.window.Recent()) == 1 })
	if res := h.window.Recent()[0]; res.Mint != testMint {
		t.Errorf("wrong mint traded: %s", res.Mint)
	}
}

func TestRunner_DenyDiscardsPending(t *testing.T) {
	cfg := baseConfig()
	cfg.RequireConfirmation = true
	h := newHarness(t, cfg)

	h.source.push(pumpFunPayload("Denied"))

	var pendingID string
	waitFor(t, "pending confirmation", func() bool {
		h.runner.mu.Lock()
		defer h.runner.mu.Unlock()
		for id := range h.runner.pending {
			pendingID = id
		}
		return pendingID != ""
	})

	decision := h.runner.Deny(pendingID)
	if decision.Authorized {
		t.Fatal("deny must not authorize")
	}
	if decision.Reason != safety.ReasonDenied {
		t.Errorf("reason = %q, want %q", decision.Reason, safety.ReasonDenied)
	}

	time.Sleep(100 * time.Millisecond)
	if got := h.executor.count(); got != 0 {
		t.Errorf("executor calls = %d after deny, want 0", got)
	}
}
