package domain

import "time"

// SniperConfig is one user-defined rule set evaluated against every new pair.
// Owned by the external config store; the core holds a read-through cache
// refreshed on change notification. Safety fields (LastTradeAt,
// SpentTodaySOL) are mutated only by the safety controller.
type SniperConfig struct {
	ID      string
	Name    string
	Enabled bool

	// Matching rules
	Keywords        []string // case-insensitive substring scoring terms
	Blacklist       []string // any substring hit rejects outright
	TwitterAccounts []string // require a discovered link to one of these handles
	MinLiquidityUSD float64
	MaxSupply       float64
	CreatorAddress  string // exact-match filter when non-empty

	// Execution parameters
	BuyAmountSOL    float64
	SlippageBps     int
	MaxGasLamports  uint64
	StaggerDelay    time.Duration // between sequential per-wallet submissions
	TradingPool     string        // "pump" | "raydium" | "auto"
	SelectedWallets []string      // wallet ids, processed in order

	// Safety state
	MaxDailySpendSOL    float64
	CooldownPeriod      time.Duration
	RequireConfirmation bool
	LastTradeAt         int64   // Unix ms of the last authorized trade
	SpentTodaySOL       float64 // cumulative authorized spend for the UTC day
	SpendDay            string  // UTC day (YYYY-MM-DD) SpentTodaySOL refers to

	UpdatedAt int64 // Unix ms
}

// Clone returns a deep copy safe for concurrent readers.
func (c *SniperConfig) Clone() *SniperConfig {
	cp := *c
	cp.Keywords = append([]string(nil), c.Keywords...)
	cp.Blacklist = append([]string(nil), c.Blacklist...)
	cp.TwitterAccounts = append([]string(nil), c.TwitterAccounts...)
	cp.SelectedWallets = append([]string(nil), c.SelectedWallets...)
	return &cp
}
