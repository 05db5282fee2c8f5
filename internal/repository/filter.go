package repository

import (
	"sort"
	"strings"
	"time"

	"solana-token-sniper/internal/domain"
)

// SortBy selects the ordering of List results.
type SortBy string

const (
	SortByRecency     SortBy = "recency" // insertion order, newest first
	SortByLiquidity   SortBy = "liquidity"
	SortByVolume      SortBy = "volume"
	SortByMarketCap   SortBy = "marketCap"
	SortByPriceChange SortBy = "priceChange"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Dexes           []string                 // keep pairs on any of these DEXes
	MigrationStatus []domain.MigrationStatus // keep pairs in any of these states
	MinLiquidityUSD float64
	MaxAge          time.Duration // keep pairs first seen within this window
	Search          string        // case-insensitive against symbol/name/mint/description
}

// List returns copies of tracked pairs matching the filter, ordered by the
// given sort key (descending for all numeric keys). Reads are allowed while
// paused: that is the point of pausing.
func (r *PairRepository) List(f Filter, by SortBy) []*domain.TradingPair {
	now := time.Now().UnixMilli()

	r.mu.RLock()
	matched := make([]*domain.TradingPair, 0, len(r.order))
	for _, mint := range r.order {
		pair := r.byMint[mint]
		if matches(pair, f, now) {
			matched = append(matched, pair.Clone())
		}
	}
	r.mu.RUnlock()

	sortPairs(matched, by)
	return matched
}

func matches(p *domain.TradingPair, f Filter, nowMs int64) bool {
	if len(f.Dexes) > 0 && !containsFold(f.Dexes, p.Dex) {
		return false
	}
	if len(f.MigrationStatus) > 0 && !containsStatus(f.MigrationStatus, p.MigrationStatus) {
		return false
	}
	if f.MinLiquidityUSD > 0 && p.LiquidityUSD < f.MinLiquidityUSD {
		return false
	}
	if f.MaxAge > 0 && nowMs-p.FirstSeenAt > f.MaxAge.Milliseconds() {
		return false
	}
	if f.Search != "" && !searchMatch(p, f.Search) {
		return false
	}
	return true
}

func searchMatch(p *domain.TradingPair, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{p.BaseToken, p.Name, p.Mint, p.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	if p.Enriched != nil && strings.Contains(strings.ToLower(p.Enriched.Description), term) {
		return true
	}
	return false
}

func sortPairs(pairs []*domain.TradingPair, by SortBy) {
	switch by {
	case SortByLiquidity:
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].LiquidityUSD > pairs[j].LiquidityUSD })
	case SortByVolume:
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Volume24hUSD > pairs[j].Volume24hUSD })
	case SortByMarketCap:
		sort.SliceStable(pairs, func(i, j int) bool { return marketCap(pairs[i]) > marketCap(pairs[j]) })
	case SortByPriceChange:
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].PriceChange24h > pairs[j].PriceChange24h })
	default:
		// SortByRecency: already in insertion order, newest first.
	}
}

func marketCap(p *domain.TradingPair) float64 {
	if p.MarketCapUSD == nil {
		return 0
	}
	return *p.MarketCapUSD
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.MigrationStatus, v domain.MigrationStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
