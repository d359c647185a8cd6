package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/user/secdash/internal/metrics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/util"
)

// SnapshotSource produces one refresh cycle's snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) *model.Snapshot
}

// SnapshotSink persists snapshots.
type SnapshotSink interface {
	Save(snap *model.Snapshot) (int64, error)
}

// Poller holds the latest snapshot and fans each new one out to
// subscribers. Readers always see a complete snapshot.
type Poller struct {
	source SnapshotSource
	sink   SnapshotSink

	latest atomic.Pointer[model.Snapshot]

	mu     sync.Mutex
	nextID int
	subs   map[int]chan *model.Snapshot
}

// NewPoller creates a poller. sink may be nil.
func NewPoller(source SnapshotSource, sink SnapshotSink) *Poller {
	return &Poller{
		source: source,
		sink:   sink,
		subs:   make(map[int]chan *model.Snapshot),
	}
}

// Latest returns the most recent snapshot, or nil before the first refresh.
func (p *Poller) Latest() *model.Snapshot {
	return p.latest.Load()
}

// Refresh fetches a new snapshot, stores it and publishes it. A canceled
// context leaves the previous snapshot in place. A cycle that ran past its
// deadline still carries fallback values and is kept.
func (p *Poller) Refresh(ctx context.Context) (*model.Snapshot, error) {
	snap := p.source.Snapshot(ctx)
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	} else if err != nil {
		util.Warn("Refresh ran past its deadline, keeping degraded snapshot")
	}

	p.latest.Store(snap)
	recordGauges(snap)

	if len(snap.Failures) > 0 {
		util.Debug("Snapshot degraded: %d resources fell back", len(snap.Failures))
	}

	var saveErr error
	if p.sink != nil {
		if _, err := p.sink.Save(snap); err != nil {
			saveErr = err
		}
	}

	p.publish(snap)
	return snap, saveErr
}

// Subscribe returns a channel receiving each new snapshot and a function
// that removes the subscription. A slow subscriber only sees the newest
// snapshot.
func (p *Poller) Subscribe() (<-chan *model.Snapshot, func()) {
	ch := make(chan *model.Snapshot, 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Poller) publish(snap *model.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale one
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func recordGauges(snap *model.Snapshot) {
	metrics.ThreatsDetected.Set(float64(snap.Network.ThreatsDetected))
	metrics.AlertsBySeverity.WithLabelValues(string(model.SeverityHigh)).Set(float64(snap.AlertStats.High))
	metrics.AlertsBySeverity.WithLabelValues(string(model.SeverityMedium)).Set(float64(snap.AlertStats.Medium))
	metrics.AlertsBySeverity.WithLabelValues(string(model.SeverityLow)).Set(float64(snap.AlertStats.Low))
}
