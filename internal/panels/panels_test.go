package panels

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anisbt/jauge/internal/backend"
	"github.com/anisbt/jauge/internal/bus"
	"github.com/anisbt/jauge/internal/period"
)

var (
	mars  = period.Period{Month: "mars", Year: 2024}
	avril = period.Period{Month: "avril", Year: 2024}
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   []period.Period
	err     error
	blockCh map[string]chan struct{} // month -> gate; fetch waits until closed
}

func (s *stubFetcher) FetchForPeriod(_ context.Context, _ string, kind backend.PanelKind, p period.Period) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, p)
	gate := s.blockCh[p.Month]
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(fmt.Sprintf(`{"kind":%q,"mois":%q}`, kind, p.Month)), nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubSource struct {
	p period.Period
}

func (s stubSource) Get(context.Context) period.Period { return s.p }

func staticToken() string { return "tok" }

func waitForSnapshot(t *testing.T, p *Panel, month string) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.Snapshot().Period.Month == month && !p.Snapshot().FetchedAt.IsZero()
	}, 2*time.Second, 5*time.Millisecond)
	return p.Snapshot()
}

func TestStartFetchesActivePeriod(t *testing.T) {
	fetcher := &stubFetcher{}
	p := NewPanel(backend.KindSummary, fetcher, stubSource{p: mars}, bus.New(), staticToken)

	p.Start(context.Background())
	defer p.Stop()

	snap := waitForSnapshot(t, p, "mars")
	assert.JSONEq(t, `{"kind":"summary","mois":"mars"}`, string(snap.Data))
	assert.Empty(t, snap.Err)
}

func TestSubscribedPanelRefetchesOnPublish(t *testing.T) {
	fetcher := &stubFetcher{}
	b := bus.New()
	p := NewPanel(backend.KindAnomalies, fetcher, stubSource{p: mars}, b, staticToken)

	p.Start(context.Background())
	defer p.Stop()
	waitForSnapshot(t, p, "mars")

	b.Publish(avril)

	snap := waitForSnapshot(t, p, "avril")
	assert.JSONEq(t, `{"kind":"anomalies","mois":"avril"}`, string(snap.Data))
	assert.Equal(t, 2, fetcher.callCount())
}

func TestStoppedPanelIgnoresPublish(t *testing.T) {
	fetcher := &stubFetcher{}
	b := bus.New()
	p := NewPanel(backend.KindAlerts, fetcher, stubSource{p: mars}, b, staticToken)

	p.Start(context.Background())
	waitForSnapshot(t, p, "mars")
	p.Stop()

	b.Publish(avril)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, "mars", p.Snapshot().Period.Month)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &stubFetcher{blockCh: map[string]chan struct{}{"mars": gate}}
	b := bus.New()
	p := NewPanel(backend.KindSummary, fetcher, stubSource{p: mars}, b, staticToken)

	// initial fetch for mars hangs on the gate
	p.Start(context.Background())
	defer p.Stop()

	// a newer period lands and completes first
	b.Publish(avril)
	waitForSnapshot(t, p, "avril")

	// the old fetch finally returns; its result must not clobber avril
	close(gate)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, "avril", p.Snapshot().Period.Month)
}

func TestFetchErrorReplacesSnapshotInline(t *testing.T) {
	fetcher := &stubFetcher{}
	b := bus.New()
	p := NewPanel(backend.KindSummary, fetcher, stubSource{p: mars}, b, staticToken)

	p.Start(context.Background())
	defer p.Stop()
	waitForSnapshot(t, p, "mars")

	fetcher.mu.Lock()
	fetcher.err = &backend.RemoteError{Status: 500, Detail: "Erreur interne"}
	fetcher.mu.Unlock()

	b.Publish(avril)
	snap := waitForSnapshot(t, p, "avril")

	assert.Empty(t, snap.Data)
	assert.Contains(t, snap.Err, "Erreur interne")
}

func TestSetStartsAllThreePanels(t *testing.T) {
	fetcher := &stubFetcher{}
	b := bus.New()
	set := NewSet(fetcher, stubSource{p: mars}, b, staticToken)

	set.Start(context.Background())
	defer set.Stop()

	require.Eventually(t, func() bool {
		return fetcher.callCount() == 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.Same(t, set.Anomalies, set.Get(backend.KindAnomalies))
	assert.Same(t, set.Alerts, set.Get(backend.KindAlerts))
	assert.Same(t, set.Summary, set.Get(backend.KindSummary))
	assert.Nil(t, set.Get(backend.PanelKind("bogus")))
}
