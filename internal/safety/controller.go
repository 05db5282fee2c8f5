// Package safety gates trade execution behind cooldowns, daily spend caps
// and optional manual confirmation.
package safety

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-token-sniper/internal/domain"
)

// Rejection reasons. A safety rejection is a withheld trade, not a fault.
const (
	ReasonCooldown     = "cooldown"
	ReasonDailyCap     = "daily cap"
	ReasonConfirmation = "confirmation required"
	ReasonExpired      = "confirmation expired"
	ReasonUnknown      = "unknown confirmation"
	ReasonDenied       = "confirmation denied"
)

// DefaultConfirmationTTL is how long a pending confirmation stays valid.
const DefaultConfirmationTTL = 2 * time.Minute

// Decision is the outcome of an authorization request.
type Decision struct {
	Authorized bool
	Reason     string // rejection reason, empty when authorized
	PendingID  string // set when execution is suspended awaiting confirmation
}

// configState is the controller-owned safety ledger for one config. It is
// authoritative over whatever the config cache carries: cache reloads must
// not clobber spend accounting.
type configState struct {
	lastTradeAt   time.Time
	spentToday    float64
	day           string // UTC day spentToday refers to
}

// pendingConfirmation is a suspended authorization awaiting an external
// confirm/deny signal.
type pendingConfirmation struct {
	cfg       *domain.SniperConfig
	amountSOL float64
	createdAt time.Time
}

// Controller enforces the safety invariants. Check and update run as one
// indivisible critical section per authorization so two concurrent matches
// can never both pass a cap check before either commits.
type Controller struct {
	mu      sync.Mutex
	states  map[string]*configState
	pending map[string]*pendingConfirmation
	ttl     time.Duration
	now     func() time.Time
}

// New creates a safety controller.
func New() *Controller {
	return &Controller{
		states:  make(map[string]*configState),
		pending: make(map[string]*pendingConfirmation),
		ttl:     DefaultConfirmationTTL,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Authorize evaluates cooldown, daily cap and confirmation gating for one
// (config, amount) authorization event. Multi-wallet staggering happens
// after authorization: the check runs once per event, not once per wallet.
func (c *Controller) Authorize(cfg *domain.SniperConfig, amountSOL float64) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	state := c.stateLocked(cfg, now)

	if d, ok := c.checkLocked(cfg, state, amountSOL, now); !ok {
		return d
	}

	if cfg.RequireConfirmation {
		id := uuid.NewString()
		c.pending[id] = &pendingConfirmation{
			cfg:       cfg.Clone(),
			amountSOL: amountSOL,
			createdAt: now,
		}
		return Decision{Reason: ReasonConfirmation, PendingID: id}
	}

	c.commitLocked(state, amountSOL, now)
	return Decision{Authorized: true}
}

// Confirm resolves a pending confirmation. The safety checks re-run at
// confirmation time: the world may have moved while the human decided.
func (c *Controller) Confirm(pendingID string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[pendingID]
	if !ok {
		return Decision{Reason: ReasonUnknown}
	}
	delete(c.pending, pendingID)

	now := c.now()
	if now.Sub(p.createdAt) > c.ttl {
		return Decision{Reason: ReasonExpired}
	}

	state := c.stateLocked(p.cfg, now)
	if d, ok := c.checkLocked(p.cfg, state, p.amountSOL, now); !ok {
		return d
	}
	c.commitLocked(state, p.amountSOL, now)
	return Decision{Authorized: true}
}

// Deny discards a pending confirmation.
func (c *Controller) Deny(pendingID string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[pendingID]; !ok {
		return Decision{Reason: ReasonUnknown}
	}
	delete(c.pending, pendingID)
	return Decision{Reason: ReasonDenied}
}

// SpentToday returns the committed spend for the config's current UTC day.
func (c *Controller) SpentToday(cfg *domain.SniperConfig) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.stateLocked(cfg, c.now())
	return state.spentToday
}

// checkLocked evaluates cooldown then daily cap. Caller holds the lock.
func (c *Controller) checkLocked(cfg *domain.SniperConfig, state *configState, amountSOL float64, now time.Time) (Decision, bool) {
	if cfg.CooldownPeriod > 0 && !state.lastTradeAt.IsZero() &&
		now.Sub(state.lastTradeAt) < cfg.CooldownPeriod {
		return Decision{Reason: ReasonCooldown}, false
	}
	if cfg.MaxDailySpendSOL > 0 && state.spentToday+amountSOL > cfg.MaxDailySpendSOL {
		return Decision{Reason: ReasonDailyCap}, false
	}
	return Decision{}, true
}

// commitLocked updates spend and timestamp atomically with the check.
func (c *Controller) commitLocked(state *configState, amountSOL float64, now time.Time) {
	state.spentToday += amountSOL
	state.lastTradeAt = now
}

// stateLocked returns the ledger for the config, seeding it from the
// config's persisted safety fields on first sight and rolling the spend
// counter over at UTC midnight.
func (c *Controller) stateLocked(cfg *domain.SniperConfig, now time.Time) *configState {
	state, ok := c.states[cfg.ID]
	if !ok {
		state = &configState{
			spentToday: cfg.SpentTodaySOL,
			day:        cfg.SpendDay,
		}
		if cfg.LastTradeAt > 0 {
			state.lastTradeAt = time.UnixMilli(cfg.LastTradeAt)
		}
		c.states[cfg.ID] = state
	}

	day := now.UTC().Format("2006-01-02")
	if state.day != day {
		state.day = day
		state.spentToday = 0
	}
	return state
}

// Snapshot exports the ledger for a config so the external store can
// persist it (LastTradeAt ms, SpentToday, SpendDay).
func (c *Controller) Snapshot(configID string) (int64, float64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[configID]
	if !ok {
		return 0, 0, ""
	}
	var last int64
	if !state.lastTradeAt.IsZero() {
		last = state.lastTradeAt.UnixMilli()
	}
	return last, state.spentToday, state.day
}
