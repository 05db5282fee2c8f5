package safety

import (
	"sync"
	"testing"
	"time"

	"solana-token-sniper/internal/domain"
)

func gatedConfig() *domain.SniperConfig {
	return &domain.SniperConfig{
		ID:               "cfg1",
		Enabled:          true,
		BuyAmountSOL:     0.5,
		CooldownPeriod:   5 * time.Minute,
		MaxDailySpendSOL: 1.0,
	}
}

// fixedClock is a settable time source.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAuthorize_CooldownThenCap(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	c := New().WithClock(clock.now)
	cfg := gatedConfig()

	// t=0: first trade passes and commits.
	if d := c.Authorize(cfg, 0.5); !d.Authorized {
		t.Fatalf("first trade rejected: %+v", d)
	}

	// t=60s: inside the 5m cooldown.
	clock.advance(time.Minute)
	if d := c.Authorize(cfg, 0.5); d.Authorized || d.Reason != ReasonCooldown {
		t.Errorf("expected cooldown rejection, got %+v", d)
	}

	// t=400s: cooldown over, but 0.5+0.6 would exceed the 1.0 SOL cap.
	clock.advance(340 * time.Second)
	if d := c.Authorize(cfg, 0.6); d.Authorized || d.Reason != ReasonDailyCap {
		t.Errorf("expected daily cap rejection, got %+v", d)
	}

	// An amount that exactly reaches the cap still passes.
	if d := c.Authorize(cfg, 0.5); !d.Authorized {
		t.Errorf("exact-cap trade rejected: %+v", d)
	}
	if got := c.SpentToday(cfg); got != 1.0 {
		t.Errorf("SpentToday mismatch: got %f", got)
	}
}

func TestAuthorize_ConcurrentCapRace(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	c := New().WithClock(clock.now)

	cfg := gatedConfig()
	cfg.CooldownPeriod = 0
	cfg.MaxDailySpendSOL = 0.6

	// Two concurrent 0.5 SOL authorizations: exactly one may pass.
	var wg sync.WaitGroup
	results := make([]Decision, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Authorize(cfg, 0.5)
		}(i)
	}
	wg.Wait()

	passed := 0
	for _, d := range results {
		if d.Authorized {
			passed++
		}
	}
	if passed != 1 {
		t.Errorf("exactly one concurrent authorization may pass, got %d", passed)
	}
}

func TestAuthorize_DayRollover(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 23, 50, 0, 0, time.UTC))
	c := New().WithClock(clock.now)

	cfg := gatedConfig()
	cfg.CooldownPeriod = 0

	if d := c.Authorize(cfg, 1.0); !d.Authorized {
		t.Fatalf("first trade rejected: %+v", d)
	}
	if d := c.Authorize(cfg, 0.1); d.Authorized {
		t.Fatal("cap should be exhausted")
	}

	// Past UTC midnight the spend counter resets.
	clock.advance(20 * time.Minute)
	if d := c.Authorize(cfg, 1.0); !d.Authorized {
		t.Errorf("post-rollover trade rejected: %+v", d)
	}
}

func TestAuthorize_SeedsFromPersistedFields(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	c := New().WithClock(func() time.Time { return now })

	cfg := gatedConfig()
	cfg.SpentTodaySOL = 0.8
	cfg.SpendDay = "2026-03-02"
	cfg.LastTradeAt = now.Add(-time.Hour).UnixMilli()
	cfg.CooldownPeriod = 0

	if d := c.Authorize(cfg, 0.5); d.Authorized || d.Reason != ReasonDailyCap {
		t.Errorf("persisted spend must count against the cap, got %+v", d)
	}
}

func TestConfirmation_Flow(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	c := New().WithClock(clock.now)

	cfg := gatedConfig()
	cfg.RequireConfirmation = true

	d := c.Authorize(cfg, 0.5)
	if d.Authorized || d.PendingID == "" || d.Reason != ReasonConfirmation {
		t.Fatalf("expected suspended authorization, got %+v", d)
	}

	// Nothing is committed while pending.
	if got := c.SpentToday(cfg); got != 0 {
		t.Errorf("pending authorization must not commit spend: %f", got)
	}

	confirmed := c.Confirm(d.PendingID)
	if !confirmed.Authorized {
		t.Fatalf("confirm failed: %+v", confirmed)
	}
	if got := c.SpentToday(cfg); got != 0.5 {
		t.Errorf("confirmed spend not committed: %f", got)
	}

	// A pending id resolves at most once.
	if again := c.Confirm(d.PendingID); again.Authorized || again.Reason != ReasonUnknown {
		t.Errorf("double confirm must fail, got %+v", again)
	}
}

func TestConfirmation_Expiry(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	c := New().WithClock(clock.now)

	cfg := gatedConfig()
	cfg.RequireConfirmation = true

	d := c.Authorize(cfg, 0.5)
	clock.advance(DefaultConfirmationTTL + time.Second)

	if late := c.Confirm(d.PendingID); late.Authorized || late.Reason != ReasonExpired {
		t.Errorf("expected expiry, got %+v", late)
	}
}

func TestConfirmation_RechecksAtConfirmTime(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	c := New().WithClock(clock.now)

	cfg := gatedConfig()
	cfg.RequireConfirmation = true
	cfg.CooldownPeriod = 0

	d1 := c.Authorize(cfg, 0.6)
	d2 := c.Authorize(cfg, 0.6)

	// Both passed the check at authorization time; only the first can
	// still pass once its commit lands.
	if ok := c.Confirm(d1.PendingID); !ok.Authorized {
		t.Fatalf("first confirm failed: %+v", ok)
	}
	if second := c.Confirm(d2.PendingID); second.Authorized || second.Reason != ReasonDailyCap {
		t.Errorf("second confirm must re-check the cap, got %+v", second)
	}
}

func TestDeny(t *testing.T) {
	clock := newClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	c := New().WithClock(clock.now)

	cfg := gatedConfig()
	cfg.RequireConfirmation = true

	d := c.Authorize(cfg, 0.5)
	if denied := c.Deny(d.PendingID); denied.Reason != ReasonDenied {
		t.Errorf("deny failed: %+v", denied)
	}
	if got := c.SpentToday(cfg); got != 0 {
		t.Errorf("denied trade must not commit spend: %f", got)
	}
	if unknown := c.Deny(d.PendingID); unknown.Reason != ReasonUnknown {
		t.Errorf("double deny must report unknown, got %+v", unknown)
	}
}

func TestSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	c := New().WithClock(func() time.Time { return now })

	cfg := gatedConfig()
	if d := c.Authorize(cfg, 0.5); !d.Authorized {
		t.Fatalf("authorize failed: %+v", d)
	}

	last, spent, day := c.Snapshot("cfg1")
	if last != now.UnixMilli() || spent != 0.5 || day != "2026-03-02" {
		t.Errorf("snapshot wrong: last=%d spent=%f day=%s", last, spent, day)
	}

	if last, spent, day := c.Snapshot("missing"); last != 0 || spent != 0 || day != "" {
		t.Error("unknown config snapshot must be zero")
	}
}
