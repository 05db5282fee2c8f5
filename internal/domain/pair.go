package domain

// MigrationStatus represents the lifecycle stage of a token's liquidity.
type MigrationStatus string

const (
	MigrationPre       MigrationStatus = "PRE_MIGRATION"
	MigrationMigrating MigrationStatus = "MIGRATING"
	MigrationMigrated  MigrationStatus = "MIGRATED"
	MigrationFailed    MigrationStatus = "FAILED"
)

// String returns the string representation of MigrationStatus.
func (m MigrationStatus) String() string {
	return string(m)
}

// IsValid checks if the status is a valid value.
func (m MigrationStatus) IsValid() bool {
	switch m {
	case MigrationPre, MigrationMigrating, MigrationMigrated, MigrationFailed:
		return true
	}
	return false
}

// TradingPair represents a tradeable token paired with its quote asset on a DEX.
// Created on first sighting, mutated in place by enrichment or later connector
// data, evicted from the repository by capacity.
type TradingPair struct {
	Mint       string // PRIMARY KEY, token mint address
	BaseToken  string // base token symbol
	QuoteToken string // quote token symbol, usually "SOL"
	Name       string
	Dex        string

	LiquidityUSD   float64
	Volume24hUSD   float64
	PriceChange24h float64  // percent
	MarketCapUSD   *float64 // nullable, not all sources report it
	Supply         float64

	CreatedAt       int64 // token creation timestamp (ms)
	FirstSeenAt     int64 // first sighting by any connector (ms)
	MigrationStatus MigrationStatus
	RiskScore       int // 0..100, informational heuristic

	Creator     string
	Description string
	ImageURL    string
	MetadataURI string
	SocialLinks []SocialLink

	Enriched *EnrichedMetadata // nil until enrichment completes
}

// Clone returns a deep copy safe for handing out of the repository.
func (p *TradingPair) Clone() *TradingPair {
	c := *p
	if p.MarketCapUSD != nil {
		v := *p.MarketCapUSD
		c.MarketCapUSD = &v
	}
	c.SocialLinks = append([]SocialLink(nil), p.SocialLinks...)
	if p.Enriched != nil {
		e := p.Enriched.Clone()
		c.Enriched = e
	}
	return &c
}
