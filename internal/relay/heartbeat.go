package relay

import (
	"sync"
	"time"
)

// HeartbeatMonitor drives the ping/pong liveness protocol for one session.
//
// On every interval tick it invokes ping and arms a one-shot timeout.
// Pong disarms the pending timeout; if the timeout fires first, expire is
// invoked exactly once and the monitor keeps ticking until stopped (the
// expire callback is expected to tear the session down, which stops it).
//
// Stop is synchronous: once it returns, neither ping nor expire will be
// invoked again. All methods are safe for concurrent use.
type HeartbeatMonitor struct {
	interval time.Duration
	timeout  time.Duration
	ping     func()
	expire   func()

	mu      sync.Mutex
	ticker  *time.Ticker
	pending *time.Timer
	done    chan struct{}
	started bool
	stopped bool
}

// NewHeartbeatMonitor builds a monitor with the given schedule. ping is
// called on each interval tick; expire when a pong misses its window.
func NewHeartbeatMonitor(interval, timeout time.Duration, ping, expire func()) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		interval: interval,
		timeout:  timeout,
		ping:     ping,
		expire:   expire,
		done:     make(chan struct{}),
	}
}

// Start begins the ping schedule. Calling Start more than once, or after
// Stop, is a no-op.
func (m *HeartbeatMonitor) Start() {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.ticker = time.NewTicker(m.interval)
	m.mu.Unlock()

	go m.run()
}

func (m *HeartbeatMonitor) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.beat()
		}
	}
}

// beat sends a ping and arms the pong timeout unless one is already
// pending from an unanswered ping.
func (m *HeartbeatMonitor) beat() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if m.pending == nil {
		m.pending = time.AfterFunc(m.timeout, m.expired)
	}
	m.mu.Unlock()

	m.ping()
}

func (m *HeartbeatMonitor) expired() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.mu.Unlock()

	m.expire()
}

// Pong disarms the pending timeout. No-op if none is armed.
func (m *HeartbeatMonitor) Pong() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}

// Stop cancels the schedule and any pending timeout. Idempotent.
func (m *HeartbeatMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	if m.ticker != nil {
		m.ticker.Stop()
	}
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	close(m.done)
}
