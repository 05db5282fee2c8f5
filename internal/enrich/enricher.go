// Package enrich augments tracked pairs with off-chain descriptive metadata.
// Enrichment is asynchronous and rate-limited; it never blocks ingestion.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/observability"
)

const (
	// DefaultWorkers bounds concurrent fetches.
	DefaultWorkers = 4

	// DefaultTimeout is the per-fetch timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultRequestInterval spaces requests to respect upstream rate
	// limits (one fetch per 500ms across all workers).
	DefaultRequestInterval = 500 * time.Millisecond

	// maxDocumentBytes caps the metadata document size.
	maxDocumentBytes = 1 << 20

	// MaxTags bounds the extracted tag set.
	MaxTags = 5
)

// ErrQueueFull is returned by Enqueue when the work queue is saturated.
// The pair simply stays unenriched; enrichment has no retry.
var ErrQueueFull = errors.New("enrichment queue full")

// Task is one enrichment request: a snapshot of the fields the enricher
// needs, taken at scheduling time so it never reads the repository.
type Task struct {
	Mint        string
	Name        string
	Symbol      string
	Description string
	MetadataURI string
	InlineLinks []domain.SocialLink
}

// ApplyFunc delivers a completed enrichment back to the owner of the pair
// data. It is not called on failure.
type ApplyFunc func(mint string, meta *domain.EnrichedMetadata)

// Options configures an Enricher.
type Options struct {
	Workers         int
	Timeout         time.Duration
	RequestInterval time.Duration
	QueueSize       int
	HTTPClient      *http.Client
	Logger          *log.Logger
}

// Enricher runs a bounded worker pool that resolves metadataURI documents,
// merges inline social links, and extracts a small tag set.
type Enricher struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
	apply   ApplyFunc

	queue chan Task
	wg    sync.WaitGroup
	once  sync.Once
}

// New creates an enricher delivering results through apply.
func New(opts Options, apply ApplyFunc) *Enricher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestInterval <= 0 {
		opts.RequestInterval = DefaultRequestInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Enricher{
		opts:    opts,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(opts.RequestInterval), 1),
		logger:  logger,
		apply:   apply,
		queue:   make(chan Task, opts.QueueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (e *Enricher) Start(ctx context.Context) {
	for i := 0; i < e.opts.Workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
}

// Wait blocks until all workers have exited.
func (e *Enricher) Wait() {
	e.once.Do(func() { close(e.queue) })
	e.wg.Wait()
}

// Enqueue schedules enrichment without blocking. Returns ErrQueueFull when
// the bounded queue is saturated under burst load.
func (e *Enricher) Enqueue(task Task) error {
	select {
	case e.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Enricher) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-e.queue:
			if !ok {
				return
			}
			e.process(ctx, task)
		}
	}
}

// process resolves one task. Fetch failures leave the pair unenriched; a
// missing metadataURI still yields an enrichment from inline data alone,
// which may legitimately be empty.
func (e *Enricher) process(ctx context.Context, task Task) {
	if err := e.limiter.Wait(ctx); err != nil {
		return
	}

	var doc *metadataDocument
	if task.MetadataURI != "" {
		fetched, err := e.fetch(ctx, task.MetadataURI)
		if err != nil {
			observability.DefaultMetrics.EnrichmentsFailed.Inc()
			e.logger.Printf("[enrich] %s: fetch failed, leaving unenriched: %v", task.Mint, err)
			return
		}
		doc = fetched
	}

	meta := build(task, doc)
	e.apply(task.Mint, meta)
	observability.DefaultMetrics.EnrichmentsCompleted.Inc()
}

// fetch retrieves and decodes the off-chain metadata document.
func (e *Enricher) fetch(ctx context.Context, uri string) (*metadataDocument, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, err
	}

	var doc metadataDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata document: %w", err)
	}
	return &doc, nil
}

// metadataDocument is the off-chain JSON descriptor shape (Metaplex-style).
type metadataDocument struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ExternalURL string `json:"external_url"`
	Verified    bool   `json:"verified"`
	Twitter     string `json:"twitter"`
	Telegram    string `json:"telegram"`
	Website     string `json:"website"`
	Extensions  struct {
		Twitter  string `json:"twitter"`
		Telegram string `json:"telegram"`
		Discord  string `json:"discord"`
		Website  string `json:"website"`
	} `json:"extensions"`
}

// build merges document and inline data into EnrichedMetadata. Links are
// deduplicated by URL with inline links taking precedence (they arrived
// first).
func build(task Task, doc *metadataDocument) *domain.EnrichedMetadata {
	meta := &domain.EnrichedMetadata{
		Description: task.Description,
		FetchedAt:   time.Now().UnixMilli(),
	}

	links := append([]domain.SocialLink(nil), task.InlineLinks...)
	if doc != nil {
		if doc.Description != "" {
			meta.Description = doc.Description
		}
		meta.ImageURL = doc.Image
		meta.Verified = doc.Verified
		links = append(links,
			link("twitter", doc.Twitter),
			link("twitter", doc.Extensions.Twitter),
			link("telegram", doc.Telegram),
			link("telegram", doc.Extensions.Telegram),
			link("discord", doc.Extensions.Discord),
			link("website", doc.Website),
			link("website", doc.Extensions.Website),
			link("website", doc.ExternalURL),
		)
	}
	meta.SocialLinks = dedupLinks(links)
	meta.Tags = ExtractTags(task.Name, task.Symbol, meta.Description)
	return meta
}

func link(platform, url string) domain.SocialLink {
	return domain.SocialLink{Platform: platform, URL: url}
}

// dedupLinks drops empty URLs and duplicates, preserving first occurrence.
func dedupLinks(links []domain.SocialLink) []domain.SocialLink {
	seen := make(map[string]struct{}, len(links))
	var out []domain.SocialLink
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		key := strings.ToLower(strings.TrimRight(l.URL, "/"))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
