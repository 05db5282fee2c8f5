package domain

import "time"

// TransactionResult is the outcome of one trade submission for one wallet.
type TransactionResult struct {
	ConfigID  string
	Mint      string
	WalletID  string
	Success   bool
	Signature string // empty on failure
	Error     string // provider error surfaced verbatim, empty on success
	Provider  string // "direct" | "routed"
	AmountSOL float64
	Latency   time.Duration
	Timestamp int64 // Unix ms
}
