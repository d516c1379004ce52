// Package rtt estimates per-call network timeouts from observed latency,
// using the TCP retransmission-timeout algorithm (Jacobson smoothing for the
// mean and variation, Karn-style backoff on failure).
package rtt

import (
	"sync"
	"time"
)

const (
	// Smoothing weights from RFC 6298: alpha for the mean, beta for the variation.
	alpha = 0.125
	beta  = 0.25

	// The variation is multiplied by 4 in the RTO formula to cover latency
	// spikes without tripping false timeouts.
	varianceFactor = 4
)

// Config bounds the estimator. Zero values fall back to defaults suitable
// for a shared-host weather endpoint.
type Config struct {
	// Min is the timeout floor; keeps CPU-throttled slowness from being
	// mistaken for network failure.
	Min time.Duration
	// Max is the timeout ceiling; past it the user has given up anyway.
	Max time.Duration
	// Initial seeds the smoothed round-trip time, tolerant of cold starts.
	Initial time.Duration
	// IdleDecay is how long the estimator may sit unused before its
	// confidence is decayed on the next Timeout call.
	IdleDecay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Min <= 0 {
		c.Min = time.Second
	}
	if c.Max <= 0 {
		c.Max = 10 * time.Second
	}
	if c.Initial <= 0 {
		c.Initial = 3 * time.Second
	}
	if c.IdleDecay <= 0 {
		c.IdleDecay = 10 * time.Minute
	}
	return c
}

// Estimator tracks smoothed round-trip time and variation and produces a
// clamped timeout for the next call. Safe for concurrent use.
type Estimator struct {
	cfg Config

	mu       sync.Mutex
	srtt     float64 // smoothed round-trip time, seconds
	rttvar   float64 // round-trip time variation, seconds
	timeout  time.Duration
	lastUsed time.Time
}

// Stats is a point-in-time snapshot for logs and the debug endpoint.
type Stats struct {
	SRTT    float64       `json:"srtt"`
	RTTVar  float64       `json:"rttvar"`
	Timeout time.Duration `json:"timeout"`
	Idle    time.Duration `json:"idle"`
}

// New returns an Estimator seeded with cfg.Initial and a 0.5s variation.
func New(cfg Config) *Estimator {
	cfg = cfg.withDefaults()
	e := &Estimator{
		cfg:      cfg,
		srtt:     cfg.Initial.Seconds(),
		rttvar:   0.5,
		lastUsed: time.Now(),
	}
	e.timeout = e.clamp()
	return e
}

// clamp computes SRTT + 4*RTTVAR bounded to [Min, Max]. Callers hold e.mu.
func (e *Estimator) clamp() time.Duration {
	rto := time.Duration((e.srtt + varianceFactor*e.rttvar) * float64(time.Second))
	if rto < e.cfg.Min {
		return e.cfg.Min
	}
	if rto > e.cfg.Max {
		return e.cfg.Max
	}
	return rto
}

// Timeout returns the timeout to use for the next call. If the estimator has
// been idle past IdleDecay, the variation is doubled first (floor 1s) so the
// first call after a long sleep gets a wider margin.
func (e *Estimator) Timeout() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if time.Since(e.lastUsed) > e.cfg.IdleDecay {
		e.rttvar *= 2
		if e.rttvar < 1.0 {
			e.rttvar = 1.0
		}
		e.timeout = e.clamp()
		e.lastUsed = time.Now()
	}
	return e.timeout
}

// Observe feeds a completed call back into the model. ok means the network
// answered at all; an HTTP error status still counts as a network success.
// On failure the measured latency is discarded (it is skewed by the timeout
// itself) and the current timeout doubles, clamped to Max.
func (e *Estimator) Observe(latency time.Duration, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastUsed = time.Now()

	if !ok {
		next := e.timeout * 2
		if next > e.cfg.Max {
			next = e.cfg.Max
		}
		e.timeout = next
		e.rttvar += 0.5
		return
	}

	observed := latency.Seconds()
	diff := observed - e.srtt
	e.srtt += alpha * diff
	if diff < 0 {
		diff = -diff
	}
	e.rttvar += beta * (diff - e.rttvar)
	e.timeout = e.clamp()
}

// Snapshot returns current estimator state.
func (e *Estimator) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		SRTT:    e.srtt,
		RTTVar:  e.rttvar,
		Timeout: e.timeout,
		Idle:    time.Since(e.lastUsed),
	}
}
