// Package monitor watches consecutive snapshots and reports what changed
// between them.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/user/secdash/internal/model"
)

// EventKind names a change between two snapshots.
type EventKind string

const (
	EventStateChange   EventKind = "state_change"
	EventNewAlert      EventKind = "new_alert"
	EventHostDangerous EventKind = "host_dangerous"
	EventDegraded      EventKind = "degraded"
	EventRecovered     EventKind = "recovered"
)

// Event is one observed change.
type Event struct {
	Kind    EventKind `json:"kind"`
	Time    time.Time `json:"time"`
	IP      string    `json:"ip,omitempty"`
	Message string    `json:"message"`
}

// Feed delivers snapshots as they are refreshed.
type Feed interface {
	Subscribe() (<-chan *model.Snapshot, func())
}

// Run diffs every snapshot from feed against the one before it and passes
// the events to callback, until ctx is done.
func Run(ctx context.Context, feed Feed, callback func(Event)) {
	ch, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	var prev *model.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			for _, e := range Diff(prev, snap) {
				callback(e)
			}
			prev = snap
		}
	}
}

// Diff lists the changes from prev to next. A nil prev is the first
// snapshot: only a degraded backend is reported, alerts and hosts form the
// baseline.
func Diff(prev, next *model.Snapshot) []Event {
	if next == nil {
		return nil
	}
	at := next.TakenAt
	if at.IsZero() {
		at = time.Now()
	}

	var events []Event
	if prev == nil {
		if len(next.Failures) > 0 {
			events = append(events, Event{Kind: EventDegraded, Time: at,
				Message: fmt.Sprintf("%d backend resources unavailable", len(next.Failures))})
		}
		return events
	}

	if prev.Network.Status != next.Network.Status {
		events = append(events, Event{Kind: EventStateChange, Time: at,
			Message: fmt.Sprintf("network %s -> %s", prev.Network.Status, next.Network.Status)})
	}

	switch {
	case len(prev.Failures) == 0 && len(next.Failures) > 0:
		events = append(events, Event{Kind: EventDegraded, Time: at,
			Message: fmt.Sprintf("%d backend resources unavailable", len(next.Failures))})
	case len(prev.Failures) > 0 && len(next.Failures) == 0:
		events = append(events, Event{Kind: EventRecovered, Time: at, Message: "backend fully reachable"})
	}

	// alert ids are positional, so identity is ip, type and timestamp
	seen := make(map[string]bool, len(prev.Alerts))
	for _, a := range prev.Alerts {
		seen[alertKey(a)] = true
	}
	for _, a := range next.Alerts {
		if a.Severity != model.SeverityHigh || seen[alertKey(a)] {
			continue
		}
		seen[alertKey(a)] = true
		events = append(events, Event{Kind: EventNewAlert, Time: at, IP: a.IP,
			Message: fmt.Sprintf("high alert %s from %s", a.AnomalyType, a.IP)})
	}

	dangerous := make(map[string]bool)
	for _, h := range prev.Hosts {
		if h.Status == model.HostDangerous {
			dangerous[h.IP] = true
		}
	}
	for _, h := range next.Hosts {
		if h.Status == model.HostDangerous && !dangerous[h.IP] {
			events = append(events, Event{Kind: EventHostDangerous, Time: at, IP: h.IP,
				Message: fmt.Sprintf("host %s is dangerous (score %.1f)", h.IP, h.AnomalyScore)})
		}
	}

	return events
}

func alertKey(a model.Alert) string {
	ts := ""
	if a.Timestamp != nil {
		ts = *a.Timestamp
	}
	return a.IP + "|" + a.AnomalyType + "|" + ts
}
