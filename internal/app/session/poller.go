package session

import (
	"context"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"retrocast-server-go/internal/domain/eventbus"
	"retrocast-server-go/internal/domain/feed"
	"retrocast-server-go/internal/domain/imaging"
	"retrocast-server-go/internal/platform/logging"
)

// Poller owns one Source for the lifetime of a session. Each cycle it asks
// the catalog for candidates, processes the ones strictly newer than the
// source watermark in ascending timestamp order, and pushes the encoded
// results onto the delivery queue.
//
// Nothing a remote can do terminates the poller: per-item fetch and decode
// failures skip the item, a catalog failure skips the cycle. The only exit
// is session cancellation.
type Poller struct {
	source   *feed.Source
	catalog  feed.Catalog
	fetcher  feed.Fetcher
	pipeline *imaging.Pipeline
	queue    *Queue[[]byte]
	logger   *logging.Logger
	rng      *rand.Rand

	pollInterval time.Duration
	itemDelay    time.Duration

	// Item URLs already delivered this session. Failed items are not
	// recorded so they retry as long as the watermark still admits them.
	seen map[string]struct{}

	processed atomic.Uint64
	skipped   atomic.Uint64
}

// PollerOptions bundles the collaborators a poller needs.
type PollerOptions struct {
	Source       *feed.Source
	Catalog      feed.Catalog
	Fetcher      feed.Fetcher
	Pipeline     *imaging.Pipeline
	Queue        *Queue[[]byte]
	Logger       *logging.Logger
	Rand         *rand.Rand
	PollInterval time.Duration
	ItemDelay    time.Duration
}

func NewPoller(opts PollerOptions) *Poller {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Poller{
		source:       opts.Source,
		catalog:      opts.Catalog,
		fetcher:      opts.Fetcher,
		pipeline:     opts.Pipeline,
		queue:        opts.Queue,
		logger:       opts.Logger,
		rng:          rng,
		pollInterval: opts.PollInterval,
		itemDelay:    opts.ItemDelay,
		seen:         make(map[string]struct{}),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.cycle(ctx)
		if !sleepCtx(ctx, p.pollInterval) {
			return ctx.Err()
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	candidates, err := p.catalog.ListCandidates(ctx, p.source)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.WarnTag("POLL", "%s: catalog unavailable, skipping cycle: %v",
				p.source.Name, err)
		}
		return
	}

	fresh := candidates[:0]
	for _, item := range candidates {
		if !p.source.Accepts(item.Timestamp) {
			continue
		}
		if _, done := p.seen[item.URL]; done {
			continue
		}
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp < fresh[j].Timestamp
	})

	for _, item := range fresh {
		if ctx.Err() != nil {
			return
		}
		if p.processItem(ctx, item) {
			p.seen[item.URL] = struct{}{}
			p.source.Advance(item.Timestamp)
			p.processed.Add(1)
		} else {
			p.skipped.Add(1)
		}
		if p.itemDelay > 0 && !sleepCtx(ctx, p.itemDelay) {
			return
		}
	}
}

func (p *Poller) processItem(ctx context.Context, item feed.Item) bool {
	data, err := p.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.WarnTag("POLL", "%s: fetch failed for %s: %v",
				p.source.Name, item.URL, err)
		}
		return false
	}

	payload, err := p.pipeline.Process(data, p.rng)
	if err != nil {
		p.logger.WarnTag("POLL", "%s: unusable image payload from %s: %v",
			p.source.Name, item.URL, err)
		return false
	}

	p.queue.Push(payload)
	eventbus.Publish(eventbus.TopicImageQueued, p.source.Name)
	p.logger.DebugTag("POLL", "%s: queued image from %s", p.source.Name, item.URL)
	return true
}

// Stats reports how many items this poller delivered and skipped.
func (p *Poller) Stats() (processed, skipped uint64) {
	return p.processed.Load(), p.skipped.Load()
}

// Source exposes the polled source for status reporting.
func (p *Poller) Source() *feed.Source {
	return p.source
}

// sleepCtx waits for d, returning false if ctx was cancelled first.
// A non-positive duration never sleeps.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
