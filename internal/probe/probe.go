// Package probe tracks remote store reachability. Connectivity is sampled,
// never assumed: consumers ask Online before attempting remote work and
// subscribe to Events to react to transitions.
package probe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Probe reports remote reachability. Events emits each transition; true
// means the remote store just became reachable again.
type Probe interface {
	Online() bool
	Events() <-chan bool
}

// Pinger is the minimal remote surface a probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPProbe polls the remote store's health endpoint at a fixed interval.
// A failed application request can also report an outage early through
// MarkOffline, so the terminal degrades before the next poll.
type HTTPProbe struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	online   atomic.Bool

	mu     sync.Mutex
	events chan bool
}

func NewHTTPProbe(p Pinger, interval, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		pinger:   p,
		interval: interval,
		timeout:  timeout,
		events:   make(chan bool, 8),
	}
}

func (p *HTTPProbe) Online() bool {
	return p.online.Load()
}

func (p *HTTPProbe) Events() <-chan bool {
	return p.events
}

// MarkOffline records an outage observed outside the poll loop.
func (p *HTTPProbe) MarkOffline() {
	p.set(false)
}

// Start runs the poll loop until ctx is cancelled. The first sample is taken
// immediately so boot does not wait a full interval to learn connectivity.
func (p *HTTPProbe) Start(ctx context.Context) {
	p.sample(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(ctx)
		}
	}
}

func (p *HTTPProbe) sample(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	p.set(p.pinger.Ping(pctx) == nil)
}

func (p *HTTPProbe) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online.Load() == online {
		return
	}
	p.online.Store(online)
	if online {
		log.Info().Msg("remote store reachable")
	} else {
		log.Warn().Msg("remote store unreachable, entering degraded mode")
	}
	select {
	case p.events <- online:
	default:
	}
}

// Manual is a probe whose state is set by hand. Used in tests and as the
// fallback when no remote store is configured.
type Manual struct {
	mu     sync.Mutex
	online bool
	events chan bool
}

func NewManual(online bool) *Manual {
	return &Manual{online: online, events: make(chan bool, 8)}
}

func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Manual) Events() <-chan bool {
	return m.events
}

func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	select {
	case m.events <- online:
	default:
	}
}
