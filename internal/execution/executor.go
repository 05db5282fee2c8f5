// Package execution issues trade transactions through interchangeable
// providers. The dispatcher performs no retries: retry policy belongs to
// the caller.
package execution

import (
	"context"
	"errors"

	"solana-token-sniper/internal/domain"
)

// Provider names, as reported in TransactionResult.Provider.
const (
	ProviderDirect = "direct"
	ProviderRouted = "routed"
)

// TradeAction is the direction of a trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "buy"
	ActionSell TradeAction = "sell"
)

var (
	// ErrNoProvider is returned when no executor is configured for the
	// selected provider (e.g. missing credential disabled it).
	ErrNoProvider = errors.New("no execution provider available")

	// ErrMissingCredential disables a provider at construction time.
	// Other providers remain usable.
	ErrMissingCredential = errors.New("missing provider credential")
)

// TradeParams describes one trade submission for one wallet.
type TradeParams struct {
	Action      TradeAction
	Mint        string
	AmountSOL   float64
	SlippageBps int
	MaxGas      uint64 // priority fee budget, lamports
	Pool        string // "pump" | "raydium" | "auto"
	Wallet      domain.WalletRef
}

// TradeExecutor submits one transaction and reports the outcome. The
// returned result is always non-nil; the error mirrors result.Error for
// callers that prefer error flow.
type TradeExecutor interface {
	ExecuteTransaction(ctx context.Context, params TradeParams) (*domain.TransactionResult, error)
}
