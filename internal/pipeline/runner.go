// Package pipeline wires detection, normalization, enrichment, matching,
// safety and execution into one event loop.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"solana-token-sniper/internal/configstore"
	"solana-token-sniper/internal/connector"
	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/enrich"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/matching"
	"solana-token-sniper/internal/normalize"
	"solana-token-sniper/internal/observability"
	"solana-token-sniper/internal/repository"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/sink"
	"solana-token-sniper/internal/wallet"
)

// Runner orchestrates the detection-to-execution flow.
type Runner struct {
	connectors []connector.SourceConnector
	normalizer *normalize.Normalizer
	dedup      *normalize.Deduplicator
	repo       *repository.PairRepository
	enricher   *enrich.Enricher
	engine     *matching.Engine
	configs    *configstore.Cache
	safety     *safety.Controller
	dispatcher *execution.Dispatcher
	signer     wallet.Signer
	sink       sink.ResultSink
	logger     *log.Logger

	mu      sync.Mutex
	pending map[string]pendingTrade // pendingID -> trade context

	wg sync.WaitGroup
}

// pendingTrade carries the execution context of a suspended authorization.
// The safety controller owns the spend ledger; the runner only remembers
// what to dispatch once the human decides.
type pendingTrade struct {
	cfg  *domain.SniperConfig
	mint string
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Connectors []connector.SourceConnector
	Normalizer *normalize.Normalizer
	Dedup      *normalize.Deduplicator
	Repo       *repository.PairRepository
	Enricher   *enrich.Enricher
	Engine     *matching.Engine
	Configs    *configstore.Cache
	Safety     *safety.Controller
	Dispatcher *execution.Dispatcher
	Signer     wallet.Signer
	Sink       sink.ResultSink
	Logger     *log.Logger
}

// NewRunner creates a new pipeline runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		connectors: opts.Connectors,
		normalizer: opts.Normalizer,
		dedup:      opts.Dedup,
		repo:       opts.Repo,
		enricher:   opts.Enricher,
		engine:     opts.Engine,
		configs:    opts.Configs,
		safety:     opts.Safety,
		dispatcher: opts.Dispatcher,
		signer:     opts.Signer,
		sink:       opts.Sink,
		logger:     logger,
		pending:    make(map[string]pendingTrade),
	}
}

// ApplyEnrichment returns the delivery callback the enricher uses to hand
// completed metadata back to the repository. Mutations dropped while the
// repository is paused are discarded, not buffered.
func ApplyEnrichment(repo *repository.PairRepository) enrich.ApplyFunc {
	return func(mint string, meta *domain.EnrichedMetadata) {
		err := repo.Update(mint, func(p *domain.TradingPair) {
			p.Enriched = meta
		})
		if err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrPaused) {
			log.Printf("[pipeline] enrichment apply failed for %s: %v", mint, err)
		}
	}
}

// Run starts all connectors and processes events until the context is
// cancelled. It blocks; in-flight trade dispatches are drained on shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Println("[pipeline] starting runner...")

	for _, c := range r.connectors {
		if err := c.Start(ctx); err != nil {
			return err
		}
		r.logger.Printf("[pipeline] connector started: %s", c.Name())
	}

	if r.enricher != nil {
		r.enricher.Start(ctx)
	}

	events := connector.Merge(r.connectors...)

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				r.shutdown()
				return errors.New("event stream closed")
			}
			r.handleRaw(ev)
		}
	}
}

func (r *Runner) shutdown() {
	r.logger.Println("[pipeline] runner stopping...")
	for _, c := range r.connectors {
		c.Stop()
	}
	if r.enricher != nil {
		r.enricher.Wait()
	}
	r.wg.Wait()
}

// handleRaw takes one raw event through normalize, dedup, insert,
// enrichment scheduling and matching. Dedup insertion happens before any
// scheduling so a concurrent duplicate can never double-process a mint.
func (r *Runner) handleRaw(ev domain.RawEvent) {
	observability.RecordEventReceived(ev.Source)

	token, err := r.normalizer.Normalize(ev)
	if err != nil {
		observability.RecordMalformed(ev.Source)
		r.logger.Printf("[pipeline] dropping malformed event from %s: %v", ev.Source, err)
		return
	}

	if !r.dedup.MarkSeen(token.Mint) {
		observability.RecordDuplicate()
		r.refresh(token)
		return
	}

	pair := pairFromEvent(token, ev.ReceivedAt)
	if err := r.repo.Insert(pair); err != nil {
		if errors.Is(err, repository.ErrPaused) {
			observability.DefaultMetrics.PairsDropped.Inc()
			return
		}
		r.logger.Printf("[pipeline] insert failed for %s: %v", token.Mint, err)
		return
	}
	observability.DefaultMetrics.PairsTracked.Set(float64(r.repo.Len()))

	if r.enricher != nil {
		task := enrich.Task{
			Mint:        token.Mint,
			Name:        token.Name,
			Symbol:      token.Symbol,
			Description: token.Description,
			MetadataURI: token.MetadataURI,
			InlineLinks: token.SocialLinks,
		}
		if err := r.enricher.Enqueue(task); err != nil {
			observability.DefaultMetrics.EnrichmentQueueFull.Inc()
			r.logger.Printf("[pipeline] enrichment skipped for %s: %v", token.Mint, err)
		}
	}

	r.evaluate(pair)
}

// refresh applies a follow-up sighting to an already-tracked pair.
// Duplicates never re-enter matching or enrichment; only live market fields
// and migration status move.
func (r *Runner) refresh(token *domain.TokenEvent) {
	err := r.repo.Update(token.Mint, func(p *domain.TradingPair) {
		if token.MigrationStatus.IsValid() {
			p.MigrationStatus = token.MigrationStatus
		}
		if token.LiquidityUSD > 0 {
			p.LiquidityUSD = token.LiquidityUSD
		}
		if token.VolumeUSD > 0 {
			p.Volume24hUSD = token.VolumeUSD
		}
		if token.PriceChange24h != 0 {
			p.PriceChange24h = token.PriceChange24h
		}
		if token.MarketCapUSD > 0 {
			v := token.MarketCapUSD
			p.MarketCapUSD = &v
		}
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrPaused) {
		r.logger.Printf("[pipeline] refresh failed for %s: %v", token.Mint, err)
	}
}

// evaluate runs the pair against all enabled configs and pushes every
// match through the safety gate.
func (r *Runner) evaluate(pair *domain.TradingPair) {
	configs := r.configs.Enabled()
	if len(configs) == 0 {
		return
	}

	start := time.Now()
	matches := r.engine.EvaluateAll(pair, configs)
	observability.DefaultMetrics.MatchLatency.Observe(time.Since(start).Seconds())

	for _, m := range matches {
		observability.RecordMatch(m.ConfigID)
		r.logger.Printf("[pipeline] match: config=%s mint=%s score=%d reasons=%v",
			m.ConfigID, m.Mint, m.Score, m.Reasons)

		cfg, ok := r.configs.Get(m.ConfigID)
		if !ok {
			continue
		}
		r.gate(cfg, m.Mint)
	}
}

// gate runs the safety check for one match and dispatches on approval.
func (r *Runner) gate(cfg *domain.SniperConfig, mint string) {
	decision := r.safety.Authorize(cfg, cfg.BuyAmountSOL)

	switch {
	case decision.Authorized:
		r.dispatch(cfg, mint)

	case decision.PendingID != "":
		r.mu.Lock()
		r.pending[decision.PendingID] = pendingTrade{cfg: cfg, mint: mint}
		r.mu.Unlock()
		observability.DefaultMetrics.PendingConfirms.Set(float64(r.pendingCount()))
		r.logger.Printf("[pipeline] trade suspended awaiting confirmation: id=%s config=%s mint=%s",
			decision.PendingID, cfg.ID, mint)

	default:
		observability.RecordSafetyRejection(decision.Reason)
		r.logger.Printf("[pipeline] trade rejected: config=%s mint=%s reason=%s",
			cfg.ID, mint, decision.Reason)
	}
}

// Confirm resolves a suspended trade. On approval the trade is dispatched
// with the config and mint captured at authorization time.
func (r *Runner) Confirm(pendingID string) safety.Decision {
	r.mu.Lock()
	trade, ok := r.pending[pendingID]
	delete(r.pending, pendingID)
	r.mu.Unlock()
	observability.DefaultMetrics.PendingConfirms.Set(float64(r.pendingCount()))

	decision := r.safety.Confirm(pendingID)
	if decision.Authorized && ok {
		r.dispatch(trade.cfg, trade.mint)
	}
	return decision
}

// Deny discards a suspended trade.
func (r *Runner) Deny(pendingID string) safety.Decision {
	r.mu.Lock()
	delete(r.pending, pendingID)
	r.mu.Unlock()
	observability.DefaultMetrics.PendingConfirms.Set(float64(r.pendingCount()))
	return r.safety.Deny(pendingID)
}

func (r *Runner) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// dispatch resolves the config's wallets and hands the trade to the
// executor asynchronously. Detection must never block on trade latency.
func (r *Runner) dispatch(cfg *domain.SniperConfig, mint string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx := context.Background()
		wallets := r.resolveWallets(ctx, cfg)
		if len(wallets) == 0 {
			r.logger.Printf("[pipeline] no usable wallets for config %s, trade skipped", cfg.ID)
			return
		}

		observability.DefaultMetrics.SpendSOL.WithLabelValues(cfg.ID).Add(cfg.BuyAmountSOL)

		results := r.dispatcher.Dispatch(ctx, cfg, mint, wallets)
		for _, res := range results {
			observability.RecordTrade(res.Provider, res.Success, res.Latency.Seconds())
			if r.sink != nil {
				if err := r.sink.Publish(ctx, res); err != nil {
					r.logger.Printf("[pipeline] result publish failed: %v", err)
				}
			}
		}
	}()
}

// resolveWallets maps the config's wallet ids to refs, skipping ids the
// signer does not know and refs that fail address validation.
func (r *Runner) resolveWallets(ctx context.Context, cfg *domain.SniperConfig) []domain.WalletRef {
	refs := make([]domain.WalletRef, 0, len(cfg.SelectedWallets))
	for _, id := range cfg.SelectedWallets {
		ref, err := r.signer.Resolve(ctx, id)
		if err != nil {
			r.logger.Printf("[pipeline] wallet %s skipped: %v", id, err)
			continue
		}
		if err := wallet.ValidateRef(ref); err != nil {
			r.logger.Printf("[pipeline] wallet %s skipped: %v", id, err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// Pause stops repository mutations from pair hover.
func (r *Runner) Pause() { r.repo.Pause() }

// Resume lifts a hover pause. Refused while a dialog holds the pause.
func (r *Runner) Resume() { r.repo.Resume() }

// DialogOpened latches the repository pause until DialogClosed.
func (r *Runner) DialogOpened() { r.repo.DialogOpened() }

// DialogClosed releases the dialog latch.
func (r *Runner) DialogClosed() { r.repo.DialogClosed() }
