package execution

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-token-sniper/internal/domain"
)

// Dispatcher issues authorized trades through the selected provider.
// Provider selection is a runtime setting, not per-call. For multi-wallet
// configs each wallet is processed in configured order with a stagger delay
// between submissions.
type Dispatcher struct {
	mu        sync.RWMutex
	executors map[string]TradeExecutor
	selected  string

	logger *log.Logger
}

// NewDispatcher creates a dispatcher. Executors may be registered for a
// subset of providers: a provider whose construction failed (missing
// credential) is simply absent and the others remain usable.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		executors: make(map[string]TradeExecutor),
		selected:  ProviderDirect,
		logger:    logger,
	}
}

// Register adds an executor under a provider name.
func (d *Dispatcher) Register(provider string, ex TradeExecutor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executors[provider] = ex
}

// SelectProvider switches the active provider at runtime.
func (d *Dispatcher) SelectProvider(provider string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = provider
}

// Provider returns the active provider name.
func (d *Dispatcher) Provider() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.selected
}

// Registered reports whether an executor exists for a provider name.
func (d *Dispatcher) Registered(provider string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.executors[provider]
	return ok
}

func (d *Dispatcher) executor() (TradeExecutor, string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ex, ok := d.executors[d.selected]
	if !ok {
		return nil, d.selected, ErrNoProvider
	}
	return ex, d.selected, nil
}

// Dispatch submits one authorized trade for every wallet in order, waiting
// staggerDelay between submissions. Each wallet's outcome is reported
// individually; a failed wallet does not stop the remaining ones. No retry
// at this layer.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *domain.SniperConfig, mint string, wallets []domain.WalletRef) []*domain.TransactionResult {
	ex, provider, err := d.executor()
	if err != nil {
		d.logger.Printf("[dispatch] %s: %v", provider, err)
		return []*domain.TransactionResult{{
			ConfigID:  cfg.ID,
			Mint:      mint,
			Provider:  provider,
			Error:     err.Error(),
			Timestamp: time.Now().UnixMilli(),
		}}
	}

	results := make([]*domain.TransactionResult, 0, len(wallets))
	for i, w := range wallets {
		if i > 0 && cfg.StaggerDelay > 0 {
			select {
			case <-time.After(cfg.StaggerDelay):
			case <-ctx.Done():
				return results
			}
		}

		params := TradeParams{
			Action:      ActionBuy,
			Mint:        mint,
			AmountSOL:   cfg.BuyAmountSOL,
			SlippageBps: cfg.SlippageBps,
			MaxGas:      cfg.MaxGasLamports,
			Pool:        cfg.TradingPool,
			Wallet:      w,
		}

		result, err := ex.ExecuteTransaction(ctx, params)
		result.ConfigID = cfg.ID
		if err != nil {
			d.logger.Printf("[dispatch] %s wallet=%s mint=%s failed: %v", provider, w.ID, mint, err)
		} else {
			d.logger.Printf("[dispatch] %s wallet=%s mint=%s sig=%s latency=%s", provider, w.ID, mint, result.Signature, result.Latency)
		}
		results = append(results, result)
	}
	return results
}
