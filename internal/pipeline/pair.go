package pipeline

import "solana-token-sniper/internal/domain"

// pairFromEvent builds a fresh trading pair from a normalized sighting.
// Financial fields the source did not report stay zero; market cap stays
// nil rather than zero so downstream filters can tell absent from empty.
func pairFromEvent(ev *domain.TokenEvent, receivedAt int64) *domain.TradingPair {
	pair := &domain.TradingPair{
		Mint:            ev.Mint,
		BaseToken:       ev.Symbol,
		QuoteToken:      "SOL",
		Name:            ev.Name,
		Dex:             ev.Dex,
		LiquidityUSD:    ev.LiquidityUSD,
		Volume24hUSD:    ev.VolumeUSD,
		PriceChange24h:  ev.PriceChange24h,
		Supply:          ev.Supply,
		CreatedAt:       ev.CreatedAt,
		FirstSeenAt:     receivedAt,
		MigrationStatus: ev.MigrationStatus,
		Creator:         ev.Creator,
		Description:     ev.Description,
		ImageURL:        ev.ImageURL,
		MetadataURI:     ev.MetadataURI,
		SocialLinks:     append([]domain.SocialLink(nil), ev.SocialLinks...),
	}
	if ev.MarketCapUSD > 0 {
		v := ev.MarketCapUSD
		pair.MarketCapUSD = &v
	}
	pair.RiskScore = riskScore(ev)
	return pair
}

// riskScore is an informational 0..100 heuristic, higher is riskier. A pair
// with no liquidity, no socials and no metadata scores 100; each signal of
// legitimacy lowers it.
func riskScore(ev *domain.TokenEvent) int {
	score := 100
	switch {
	case ev.LiquidityUSD >= 50_000:
		score -= 40
	case ev.LiquidityUSD >= 10_000:
		score -= 25
	case ev.LiquidityUSD >= 1_000:
		score -= 10
	}
	if len(ev.SocialLinks) > 0 {
		score -= 15
	}
	if ev.Description != "" {
		score -= 10
	}
	if ev.ImageURL != "" {
		score -= 5
	}
	if ev.MetadataURI != "" {
		score -= 10
	}
	if ev.MigrationStatus == domain.MigrationMigrated {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score
}
