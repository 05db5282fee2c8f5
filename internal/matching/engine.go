// Package matching evaluates tracked pairs against sniper configurations.
// Evaluation is fully deterministic: identical inputs always produce the
// identical (score, reasons, pass/fail) result.
package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"solana-token-sniper/internal/domain"
)

// Engine evaluates pairs against configs in a fixed rule order:
// blacklist, creator filter, threshold filter, twitter correlation,
// keyword scoring.
type Engine struct {
	history *History
}

// NewEngine creates a matching engine with a bounded match history.
func NewEngine(historySize int) *Engine {
	return &Engine{history: NewHistory(historySize)}
}

// History exposes the bounded recent-match window.
func (e *Engine) History() *History { return e.history }

// Evaluate runs the rule chain. The returned match is nil unless every
// required (non-scoring) condition passes; an emitted match always carries
// at least one reason.
func (e *Engine) Evaluate(pair *domain.TradingPair, cfg *domain.SniperConfig) *domain.TokenMatch {
	if !cfg.Enabled {
		return nil
	}

	symbol := strings.ToLower(pair.BaseToken)
	name := strings.ToLower(pair.Name)
	description := strings.ToLower(pairDescription(pair))

	// 1. Blacklist: any substring hit rejects outright.
	for _, term := range cfg.Blacklist {
		t := strings.ToLower(term)
		if t == "" {
			continue
		}
		if strings.Contains(symbol, t) || strings.Contains(name, t) || strings.Contains(description, t) {
			return nil
		}
	}

	var reasons []string

	// 2. Creator filter: exact address match when configured.
	if cfg.CreatorAddress != "" {
		if pair.Creator != cfg.CreatorAddress {
			return nil
		}
		reasons = append(reasons, fmt.Sprintf("creator %s matched", cfg.CreatorAddress))
	}

	// 3. Threshold filter.
	if pair.LiquidityUSD < cfg.MinLiquidityUSD {
		return nil
	}
	if cfg.MaxSupply > 0 && pair.Supply > cfg.MaxSupply {
		return nil
	}

	// 4. Twitter correlation: at least one discovered link must reference a
	// configured handle.
	if len(cfg.TwitterAccounts) > 0 {
		handle, ok := twitterHit(pair, cfg.TwitterAccounts)
		if !ok {
			return nil
		}
		reasons = append(reasons, fmt.Sprintf("twitter @%s referenced", handle))
	}

	// 5. Keyword scoring: monotonic, each contributing signal recorded.
	score := 0
	for _, kw := range cfg.Keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if strings.Contains(symbol, k) {
			score += 3
			reasons = append(reasons, fmt.Sprintf("keyword %q in symbol", kw))
		}
		if strings.Contains(name, k) {
			score += 2
			reasons = append(reasons, fmt.Sprintf("keyword %q in name", kw))
		}
		if strings.Contains(description, k) {
			score++
			reasons = append(reasons, fmt.Sprintf("keyword %q in description", kw))
		}
	}

	// With keywords configured, at least one must hit.
	if len(cfg.Keywords) > 0 && score == 0 {
		return nil
	}

	// A match is never emitted with an empty reasons list.
	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("liquidity $%.2f meets minimum", pair.LiquidityUSD))
	}

	return &domain.TokenMatch{
		MatchID:   uuid.NewString(),
		ConfigID:  cfg.ID,
		Mint:      pair.Mint,
		Symbol:    pair.BaseToken,
		Score:     score,
		Reasons:   reasons,
		Timestamp: time.Now().UnixMilli(),
	}
}

// EvaluateAll runs every enabled config against the pair and records
// emitted matches in the history.
func (e *Engine) EvaluateAll(pair *domain.TradingPair, configs []*domain.SniperConfig) []*domain.TokenMatch {
	var matches []*domain.TokenMatch
	for _, cfg := range configs {
		if m := e.Evaluate(pair, cfg); m != nil {
			e.history.Record(m)
			matches = append(matches, m)
		}
	}
	return matches
}

// pairDescription prefers the enriched description when present.
func pairDescription(pair *domain.TradingPair) string {
	if pair.Enriched != nil && pair.Enriched.Description != "" {
		return pair.Enriched.Description
	}
	return pair.Description
}

// twitterHit reports whether any discovered social link references one of
// the configured handles, returning the first configured handle that hits.
func twitterHit(pair *domain.TradingPair, handles []string) (string, bool) {
	links := append([]domain.SocialLink(nil), pair.SocialLinks...)
	if pair.Enriched != nil {
		links = append(links, pair.Enriched.SocialLinks...)
	}

	for _, h := range handles {
		handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
		if handle == "" {
			continue
		}
		for _, l := range links {
			if strings.Contains(strings.ToLower(l.URL), handle) {
				return handle, true
			}
		}
	}
	return "", false
}
