// Package stats derives aggregate trading statistics from the bounded
// recent-result window.
package stats

import (
	"time"

	"solana-token-sniper/internal/domain"
)

// Aggregate summarizes recent trade outcomes.
type Aggregate struct {
	TotalTrades   int
	Successful    int
	Failed        int
	SuccessRate   float64 // 0..1, zero when no trades
	AvgLatency    time.Duration
	TodayCount    int     // trades submitted in the current UTC day
	TotalSpendSOL float64 // successful spend across the window
}

// Compute derives the aggregate from a result window. Deterministic given
// identical inputs and now.
func Compute(results []*domain.TransactionResult, now time.Time) Aggregate {
	agg := Aggregate{TotalTrades: len(results)}
	if len(results) == 0 {
		return agg
	}

	today := now.UTC().Format("2006-01-02")
	var totalLatency time.Duration
	for _, r := range results {
		if r.Success {
			agg.Successful++
			agg.TotalSpendSOL += r.AmountSOL
		} else {
			agg.Failed++
		}
		totalLatency += r.Latency
		if time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02") == today {
			agg.TodayCount++
		}
	}

	agg.SuccessRate = float64(agg.Successful) / float64(len(results))
	agg.AvgLatency = totalLatency / time.Duration(len(results))
	return agg
}
