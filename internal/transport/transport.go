// Package transport issues single bounded calls against the weather endpoint.
// Each call merges the caller's cancellation with a per-call timeout into one
// derived context, so exactly one underlying request is open per invocation
// and both the timer and the cancellation hook are released on every exit path.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/geometeo/weather-client/internal/models"
	"github.com/geometeo/weather-client/internal/observability"
	"github.com/geometeo/weather-client/internal/query"
)

// ErrAborted means a cancellation source won the race against the response:
// either the caller's context or the per-call timeout.
var ErrAborted = errors.New("request aborted")

// ErrNetwork means the transport failed for any reason other than cancellation.
var ErrNetwork = errors.New("network failure")

// TimeoutSource supplies the timeout for the next call and consumes the
// outcome of completed calls. *rtt.Estimator implements it.
type TimeoutSource interface {
	Timeout() time.Duration
	Observe(latency time.Duration, ok bool)
}

// fixedTimeout is a TimeoutSource that always returns the same duration.
type fixedTimeout time.Duration

func (f fixedTimeout) Timeout() time.Duration          { return time.Duration(f) }
func (f fixedTimeout) Observe(_ time.Duration, _ bool) {}

// FixedTimeout returns a TimeoutSource with a constant per-call timeout.
func FixedTimeout(d time.Duration) TimeoutSource { return fixedTimeout(d) }

// Result is the outcome of one completed call: the HTTP status, the decoded
// report and the server-supplied error message, if any. A malformed body
// decodes to a zero Report; the status code stays the authoritative
// success/failure signal.
type Result struct {
	Status  int
	Report  models.WeatherReport
	Message string
}

// RetriableStatus reports whether a status indicates a transient condition
// worth retrying: 429 or any 5xx.
func RetriableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// Client performs timed requests against a single weather endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	timeouts TimeoutSource
	limiter  *rate.Limiter
}

// NewClient builds a Client. timeouts must not be nil; limiter may be nil to
// disable outbound rate limiting.
func NewClient(endpoint string, timeouts TimeoutSource, limiter *rate.Limiter) (*Client, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	return &Client{
		endpoint: endpoint,
		timeouts: timeouts,
		limiter:  limiter,
		// No client-level timeout: the per-call context carries the deadline.
		http: &http.Client{},
	}, nil
}

// serverPayload is the wire shape: flat weather fields on success, an error
// field alongside a non-2xx status on failure.
type serverPayload struct {
	models.WeatherReport
	Error string `json:"error"`
}

// Do issues exactly one network call for q. The caller's ctx and an
// internally armed timeout converge on one derived context; whichever fires
// first cancels the call. Returns ErrAborted when cancellation won (the
// caller can distinguish external aborts by inspecting its own context) and
// ErrNetwork for any other transport failure.
func (c *Client) Do(ctx context.Context, q query.Query) (Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrAborted, err)
		}
	}

	timeout := c.timeouts.Timeout()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.buildRequest(callCtx, q)
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Result{}, c.classify(ctx, callCtx, err, latency)
	}
	defer resp.Body.Close()

	// Any HTTP response, error status included, means the network answered.
	c.timeouts.Observe(latency, true)
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(status).Inc()
	observability.UpstreamDuration.WithLabelValues(status).Observe(latency.Seconds())

	result := Result{Status: resp.StatusCode}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Body lost mid-read; keep the status authoritative, payload empty.
		return result, nil
	}
	var payload serverPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return result, nil
	}
	result.Report = payload.WeatherReport
	result.Message = payload.Error
	return result, nil
}

// classify maps a transport error to ErrAborted or ErrNetwork and feeds the
// timeout source. An abort triggered by the caller does not punish the
// estimator: the network did not fail, the call was simply abandoned.
func (c *Client) classify(ctx, callCtx context.Context, err error, latency time.Duration) error {
	if ctx.Err() != nil {
		observability.UpstreamCallsTotal.WithLabelValues("aborted").Inc()
		return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	}
	if callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		c.timeouts.Observe(latency, false)
		observability.UpstreamCallsTotal.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: timeout after %s", ErrAborted, latency.Round(time.Millisecond))
	}
	c.timeouts.Observe(latency, false)
	observability.UpstreamCallsTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// buildRequest encodes the query as ?city= or ?lat=&lon= parameters and tags
// the request with a correlation ID.
func (c *Client) buildRequest(ctx context.Context, q query.Query) (*http.Request, error) {
	base, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}

	params := url.Values{}
	if q.Kind() == query.ByCoord {
		lat, lon := q.LatLon()
		params.Set("lat", fmt.Sprintf("%.4f", lat))
		params.Set("lon", fmt.Sprintf("%.4f", lon))
	} else {
		params.Set("city", q.CityName())
	}
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", uuid.New().String())
	return req, nil
}

// statusLabel buckets a status code into a stable metric label.
func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
