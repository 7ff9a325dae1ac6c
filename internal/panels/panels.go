// Package panels keeps server-side snapshots of the three analysis views
// (anomalies, alerts, summary). Each panel subscribes to period changes and
// refetches its slice of the backend; readers always see a whole snapshot,
// never a partial merge.
package panels

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/bus"
	"github.com/anisbt/jauge/internal/logging"
	"github.com/anisbt/jauge/internal/period"
)

var (
	fetchTimeout = 30 * time.Second
	nowFunc      = time.Now
)

// Fetcher is the read side of the backend client.
type Fetcher interface {
	FetchForPeriod(ctx context.Context, token string, kind backend.PanelKind, p period.Period) (json.RawMessage, error)
}

// PeriodSource resolves the active period at startup.
type PeriodSource interface {
	Get(ctx context.Context) period.Period
}

// TokenProvider supplies the bearer token panel fetches run under.
type TokenProvider func() string

// Snapshot is the last completed fetch. When the fetch failed, Err carries
// the reason and Data is empty; the snapshot is replaced wholesale either
// way, never merged with the previous one.
type Snapshot struct {
	Period    period.Period   `json:"period"`
	Data      json.RawMessage `json:"data,omitempty"`
	Err       string          `json:"error,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Panel observes period changes for one view kind.
type Panel struct {
	kind    backend.PanelKind
	fetcher Fetcher
	source  PeriodSource
	bus     *bus.Bus
	token   TokenProvider

	seq uint64 // bumped per refetch; stale completions are dropped

	mu       sync.Mutex
	snapshot Snapshot
	sub      *bus.Subscription
}

func NewPanel(kind backend.PanelKind, fetcher Fetcher, source PeriodSource, b *bus.Bus, token TokenProvider) *Panel {
	return &Panel{
		kind:    kind,
		fetcher: fetcher,
		source:  source,
		bus:     b,
		token:   token,
	}
}

// Start resolves the active period, kicks off the initial fetch, and
// subscribes to period changes. Starting an already-started panel is a bug.
func (p *Panel) Start(ctx context.Context) {
	active := p.source.Get(ctx)
	p.refetch(active)
	p.sub = p.bus.Subscribe(func(changed period.Period) {
		p.refetch(changed)
	})
}

// Refresh re-fetches the panel's data for the current period without
// waiting for a period change, for example after an alert is acknowledged.
func (p *Panel) Refresh(ctx context.Context) {
	p.refetch(p.source.Get(ctx))
}

// Stop detaches the panel from the bus. The last snapshot stays readable.
func (p *Panel) Stop() {
	p.bus.Unsubscribe(p.sub)
}

// Snapshot returns a copy of the last completed fetch.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// refetch starts an asynchronous fetch for the given period. Overlapping
// fetches race; only the most recently requested one may install its result.
func (p *Panel) refetch(per period.Period) {
	seq := atomic.AddUint64(&p.seq, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		data, err := p.fetcher.FetchForPeriod(ctx, p.token(), p.kind, per)

		p.mu.Lock()
		defer p.mu.Unlock()
		if seq != atomic.LoadUint64(&p.seq) {
			return
		}
		if err != nil {
			logging.L().Warn("panel fetch failed", "panel", string(p.kind), "period", per.String(), "error", err)
			p.snapshot = Snapshot{Period: per, Err: err.Error(), FetchedAt: nowFunc()}
			return
		}
		p.snapshot = Snapshot{Period: per, Data: data, FetchedAt: nowFunc()}
	}()
}

// Set bundles the three dashboard panels.
type Set struct {
	Anomalies *Panel
	Alerts    *Panel
	Summary   *Panel
}

func NewSet(fetcher Fetcher, source PeriodSource, b *bus.Bus, token TokenProvider) *Set {
	return &Set{
		Anomalies: NewPanel(backend.KindAnomalies, fetcher, source, b, token),
		Alerts:    NewPanel(backend.KindAlerts, fetcher, source, b, token),
		Summary:   NewPanel(backend.KindSummary, fetcher, source, b, token),
	}
}

func (s *Set) Start(ctx context.Context) {
	for _, p := range s.all() {
		p.Start(ctx)
	}
}

func (s *Set) Stop() {
	for _, p := range s.all() {
		p.Stop()
	}
}

// Get returns the panel for a kind, or nil for an unknown one.
func (s *Set) Get(kind backend.PanelKind) *Panel {
	if s == nil {
		return nil
	}
	switch kind {
	case backend.KindAnomalies:
		return s.Anomalies
	case backend.KindAlerts:
		return s.Alerts
	case backend.KindSummary:
		return s.Summary
	}
	return nil
}

func (s *Set) all() []*Panel {
	return []*Panel{s.Anomalies, s.Alerts, s.Summary}
}
