package domain

// RawEvent is a provider-specific payload emitted by a source connector.
// Payload is left undecoded; the normalizer owns all parsing.
type RawEvent struct {
	Source     string // connector name, e.g. "pumpfun-ws"
	Payload    []byte // raw provider frame or poll item
	ReceivedAt int64  // Unix timestamp in milliseconds
}

// SocialLink is a labeled external link carried by a token.
type SocialLink struct {
	Platform string // "twitter" | "telegram" | "website" | "discord" | ...
	URL      string
}

// TokenEvent is the canonical form of a new-token sighting from any source.
// It is transient: consumed once by the pipeline to create or refresh a
// TradingPair. Financial fields absent in the source stay zero, never estimated.
type TokenEvent struct {
	Mint        string // token mint address, canonical id
	Name        string
	Symbol      string
	Description string
	ImageURL    string
	Creator     string // creator address (may be empty)
	CreatedAt   int64  // Unix timestamp in milliseconds

	// Source-reported financials, already clamped by the normalizer.
	LiquidityUSD   float64
	MarketCapUSD   float64
	VolumeUSD      float64
	PriceChange24h float64 // percent, zero when the source does not report it
	Supply         float64

	Dex             string
	MigrationStatus MigrationStatus
	MetadataURI     string
	SocialLinks     []SocialLink // inline links the source already carried
}
