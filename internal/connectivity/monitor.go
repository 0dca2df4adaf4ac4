// Package connectivity tracks whether the remote service is reachable.
// Reachability is probed, not assumed: the monitor periodically pings the
// server and flips an online flag that the sync engine reads before every
// remote attempt.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Prober checks reachability of the remote endpoint.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor exposes a boolean online signal plus edge-triggered reconnect
// notifications. Read-only shared state for everyone but the monitor itself
// and the engine (which reconciles the flag from real call results).
type Monitor struct {
	prober   Prober
	interval time.Duration
	online   atomic.Bool

	mu   sync.Mutex
	subs []chan bool
}

// NewMonitor creates a monitor. The initial state is offline until the
// first probe or SetOnline call.
func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{prober: prober, interval: interval}
}

// Online reports the last observed reachability.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline records an observed state change. The engine calls this with
// the outcome of real remote calls so the flag converges faster than the
// probe interval; a false→true edge notifies subscribers.
func (m *Monitor) SetOnline(online bool) {
	prev := m.online.Swap(online)
	if !prev && online {
		m.notify()
	}
}

// Subscribe returns a channel receiving a value on each reconnect
// (offline→online edge), plus a cancel func.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (m *Monitor) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- true:
		default:
		}
	}
}

// Run probes reachability until ctx is cancelled. An immediate probe runs
// before the first tick.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	online := err == nil
	if online != m.online.Load() {
		slog.Debug("connectivity changed", "online", online)
	}
	m.SetOnline(online)
}
