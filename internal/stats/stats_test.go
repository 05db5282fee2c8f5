package stats

import (
	"testing"
	"time"

	"solana-token-sniper/internal/domain"
)

func TestCompute_Empty(t *testing.T) {
	agg := Compute(nil, time.Now())
	if agg.TotalTrades != 0 || agg.SuccessRate != 0 || agg.AvgLatency != 0 {
		t.Errorf("empty window must be all zero: %+v", agg)
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	results := []*domain.TransactionResult{
		{Success: true, AmountSOL: 0.5, Latency: 100 * time.Millisecond, Timestamp: now.UnixMilli()},
		{Success: true, AmountSOL: 0.25, Latency: 200 * time.Millisecond, Timestamp: now.UnixMilli()},
		{Success: false, Latency: 300 * time.Millisecond, Timestamp: yesterday.UnixMilli()},
		{Success: false, Latency: 200 * time.Millisecond, Timestamp: now.UnixMilli()},
	}

	agg := Compute(results, now)

	if agg.TotalTrades != 4 || agg.Successful != 2 || agg.Failed != 2 {
		t.Errorf("counts wrong: %+v", agg)
	}
	if agg.SuccessRate != 0.5 {
		t.Errorf("SuccessRate mismatch: %f", agg.SuccessRate)
	}
	if agg.AvgLatency != 200*time.Millisecond {
		t.Errorf("AvgLatency mismatch: %s", agg.AvgLatency)
	}
	if agg.TodayCount != 3 {
		t.Errorf("TodayCount mismatch: %d", agg.TodayCount)
	}
	if agg.TotalSpendSOL != 0.75 {
		t.Errorf("TotalSpendSOL mismatch: %f", agg.TotalSpendSOL)
	}
}
