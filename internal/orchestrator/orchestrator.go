// Package orchestrator turns a location query into a weather report while
// coping with latency variance, transient upstream failures, overlapping
// invocations and a short-lived cache. It owns the process-wide request
// sequence and the single active cancellation handle; every run resolves to
// an Outcome, never a raw error.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/geometeo/weather-client/internal/cache"
	"github.com/geometeo/weather-client/internal/models"
	"github.com/geometeo/weather-client/internal/observability"
	"github.com/geometeo/weather-client/internal/query"
	"github.com/geometeo/weather-client/internal/transport"
)

// Kind classifies how a run resolved.
type Kind int

const (
	// Hit means the report came from cache; no network work was started.
	Hit Kind = iota
	// Success means a fresh report was fetched and cached.
	Success
	// Superseded means a newer run took over while this one was in flight;
	// the result must not be cached or rendered.
	Superseded
	// Failure means the run ended with a user-facing error message.
	Failure
)

func (k Kind) String() string {
	switch k {
	case Hit:
		return "hit"
	case Success:
		return "success"
	case Superseded:
		return "superseded"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Reason tags failures for callers that care why.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonCancelled covers timed-out and explicitly aborted calls.
	ReasonCancelled
	// ReasonNetwork covers transport failures that survived all retries.
	ReasonNetwork
	// ReasonHTTP covers terminal HTTP error statuses.
	ReasonHTTP
)

// Outcome is the resolution of one Run invocation. Message is set only on
// Failure and is safe to show to the user.
type Outcome struct {
	Kind    Kind
	Report  models.WeatherReport
	Message string
	Reason  Reason
}

// Transport issues one bounded network call per invocation.
type Transport interface {
	Do(ctx context.Context, q query.Query) (transport.Result, error)
}

// Config holds the orchestrator tunables.
type Config struct {
	// RetryMax is the number of retries after the first attempt; a run makes
	// at most RetryMax+1 calls.
	RetryMax int
	// RetryBaseDelay is the first backoff; each retry doubles it (no jitter).
	RetryBaseDelay time.Duration
	// CacheTTL is how long a fetched report stays servable from cache.
	CacheTTL time.Duration
}

// Orchestrator is the core state machine. One instance per session; safe for
// concurrent Run invocations, which race deterministically: the most recently
// started run wins, earlier ones resolve as Superseded.
type Orchestrator struct {
	cache     cache.Cache
	transport Transport
	cfg       Config
	logger    *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc // at most one live handle
}

// New returns an Orchestrator.
func New(c cache.Cache, t Transport, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cache:     c,
		transport: t,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run resolves q to an Outcome: cache check first, then a supersession-aware
// attempt loop with bounded exponential backoff over retriable failures.
func (o *Orchestrator) Run(ctx context.Context, q query.Query) Outcome {
	key := q.Key()

	// A cache hit is a side-effect-free read: no sequence increment, no
	// cancellation of whatever may be in flight for a different query.
	cached, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		o.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		o.logger.Debug("cache hit", zap.String("key", key))
		return o.finish(Outcome{Kind: Hit, Report: cached})
	}

	runCtx, cancel, mySeq := o.takeover(ctx)
	defer cancel()

	for attempt := 0; attempt <= o.cfg.RetryMax; attempt++ {
		res, err := o.transport.Do(runCtx, q)

		// A newer run may have taken over while the call was in flight.
		// Transport cancellation is best-effort; this check is authoritative.
		if o.supersededSince(mySeq) {
			return o.finish(Outcome{Kind: Superseded})
		}

		if err != nil {
			if errors.Is(err, transport.ErrAborted) {
				// Cancellation is terminal for the attempt chain. Not stale
				// (checked above), so this was a timeout or a caller abort.
				o.logger.Debug("request aborted", zap.String("key", key), zap.Error(err))
				return o.finish(Outcome{
					Kind:    Failure,
					Reason:  ReasonCancelled,
					Message: "Request expired, please try again.",
				})
			}
			if attempt < o.cfg.RetryMax {
				o.logger.Debug("network failure, retrying",
					zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
				if out, stop := o.backoff(runCtx, attempt, mySeq); stop {
					return o.finish(out)
				}
				continue
			}
			return o.finish(Outcome{
				Kind:    Failure,
				Reason:  ReasonNetwork,
				Message: "Unable to reach the weather service.",
			})
		}

		if res.Status >= 200 && res.Status < 300 {
			// A newer run may take over at any point while the response is
			// being handled; a stale run must not write through or resolve
			// Success. Checked on both sides of the write since Set may block.
			if o.supersededSince(mySeq) {
				return o.finish(Outcome{Kind: Superseded})
			}
			if setErr := o.cache.Set(ctx, key, res.Report, o.cfg.CacheTTL); setErr != nil {
				o.logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
			}
			if o.supersededSince(mySeq) {
				return o.finish(Outcome{Kind: Superseded})
			}
			return o.finish(Outcome{Kind: Success, Report: res.Report})
		}

		if transport.RetriableStatus(res.Status) && attempt < o.cfg.RetryMax {
			o.logger.Debug("retriable status, retrying",
				zap.String("key", key), zap.Int("status", res.Status), zap.Int("attempt", attempt))
			if out, stop := o.backoff(runCtx, attempt, mySeq); stop {
				return o.finish(out)
			}
			continue
		}

		return o.finish(Outcome{
			Kind:    Failure,
			Reason:  ReasonHTTP,
			Message: failureMessage(res),
		})
	}

	// Unreachable under correct retry bounds.
	return o.finish(Outcome{
		Kind:    Failure,
		Reason:  ReasonNetwork,
		Message: "Unable to fetch weather data.",
	})
}

// takeover cancels the previously active run, installs a fresh cancellation
// handle and claims the next sequence number. The handle count never exceeds
// one: the old handle is cancelled before the new one is stored.
func (o *Orchestrator) takeover(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.seq++
	return runCtx, cancel, o.seq
}

// supersededSince reports whether a newer run has claimed the sequence.
func (o *Orchestrator) supersededSince(mySeq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.seq != mySeq
}

// backoff sleeps base * 2^attempt, waking early if the run is cancelled.
// Returns (outcome, true) when the run should stop instead of retrying:
// Superseded if a newer run interrupted the wait, cancelled Failure otherwise.
func (o *Orchestrator) backoff(ctx context.Context, attempt int, mySeq uint64) (Outcome, bool) {
	observability.RetriesTotal.Inc()
	delay := o.cfg.RetryBaseDelay << uint(attempt)
	select {
	case <-time.After(delay):
		return Outcome{}, false
	case <-ctx.Done():
		if o.supersededSince(mySeq) {
			return Outcome{Kind: Superseded}, true
		}
		return Outcome{
			Kind:    Failure,
			Reason:  ReasonCancelled,
			Message: "Request expired, please try again.",
		}, true
	}
}

// finish records the outcome metric and returns the outcome unchanged.
func (o *Orchestrator) finish(out Outcome) Outcome {
	observability.OutcomesTotal.WithLabelValues(out.Kind.String()).Inc()
	if out.Kind == Hit {
		observability.CacheHitsTotal.Inc()
	}
	return out
}

// failureMessage prefers the server-supplied error text; otherwise derives a
// short message from the HTTP status.
func failureMessage(res transport.Result) string {
	if res.Message != "" {
		return res.Message
	}
	switch res.Status {
	case http.StatusNotFound:
		return "Location not found."
	case http.StatusUnauthorized:
		return "Weather service is misconfigured."
	case http.StatusTooManyRequests:
		return "Weather service is busy, please try again."
	default:
		if res.Status >= 500 {
			return "Weather service is unavailable."
		}
		return fmt.Sprintf("Weather service error (HTTP %d).", res.Status)
	}
}
