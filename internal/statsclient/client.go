// Package statsclient talks to the upstream player statistics service.
//
// Every failure surfaces as an error wrapping ErrUnavailable: callers treat a
// missing upstream answer as an expected outcome, not a fault.
package statsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hoopsdata/prediction-service/internal/models"
)

// ErrUnavailable is returned when the stats service has no usable answer.
var ErrUnavailable = errors.New("stats unavailable")

// errEmpty marks a 200 response with an empty body. The breaker counts it as
// a success.
var errEmpty = errors.New("empty response")

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_upstream_requests_total",
		Help: "Upstream stats service requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prediction_upstream_request_duration_seconds",
		Help:    "Duration of single upstream HTTP attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	upstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_upstream_retries_total",
		Help: "Upstream retries after a failed attempt",
	}, []string{"endpoint"})
)

const (
	endpointStats = "stats"
	endpointGames = "games"
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	RateLimit   float64
	RateBurst   int
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.SugaredLogger
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	logger := cfg.Logger.Sugar()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stats-service",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errEmpty)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     breaker,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// GetPlayerStats fetches the season averages of a player. Both 429 responses
// and transport errors are retried.
func (c *Client) GetPlayerStats(ctx context.Context, playerName string) (*models.PlayerStats, error) {
	q := url.Values{"name": {playerName}}
	body, err := c.call(ctx, endpointStats, "/api/players/stats?"+q.Encode(), true)
	if err != nil {
		return nil, c.unavailable(endpointStats, playerName, err)
	}

	var upstream models.UpstreamStats
	if err := json.Unmarshal(body, &upstream); err != nil {
		return nil, c.unavailable(endpointStats, playerName, fmt.Errorf("decode stats: %w", err))
	}
	stats := upstream.ToPlayerStats()
	return &stats, nil
}

// GetPlayerGameLog fetches the most recent games of a player. Only 429
// responses are retried; other failures give up immediately. Entries whose
// date cannot be parsed are skipped.
func (c *Client) GetPlayerGameLog(ctx context.Context, playerName string, limit int) ([]models.GameLogEntry, error) {
	q := url.Values{"name": {playerName}, "limit": {strconv.Itoa(limit)}}
	body, err := c.call(ctx, endpointGames, "/api/players/games?"+q.Encode(), false)
	if err != nil {
		return nil, c.unavailable(endpointGames, playerName, err)
	}

	var games []models.UpstreamGame
	if err := json.Unmarshal(body, &games); err != nil {
		return nil, c.unavailable(endpointGames, playerName, fmt.Errorf("decode games: %w", err))
	}

	entries := make([]models.GameLogEntry, 0, len(games))
	for _, g := range games {
		entry, err := g.ToGameLogEntry(playerName)
		if err != nil {
			c.logger.Warnw("Skipping game with unparseable date", "player", playerName, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Client) unavailable(endpoint, playerName string, err error) error {
	switch {
	case errors.Is(err, errEmpty):
		upstreamRequests.WithLabelValues(endpoint, "empty").Inc()
		c.logger.Infow("No upstream data for player", "endpoint", endpoint, "player", playerName)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		upstreamRequests.WithLabelValues(endpoint, "breaker_open").Inc()
		c.logger.Warnw("Upstream circuit open", "endpoint", endpoint, "player", playerName)
	default:
		upstreamRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warnw("Upstream request failed", "endpoint", endpoint, "player", playerName, "error", err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
}

// call runs the retry loop for one logical request behind the breaker.
func (c *Client) call(ctx context.Context, endpoint, path string, retryAll bool) ([]byte, error) {
	// Upstream requests keep their own deadline even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	res, err := c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 1; attempt <= c.maxAttempts; attempt++ {
			if attempt > 1 {
				backoff := c.retryDelay * time.Duration(1<<uint(attempt-2))
				upstreamRetries.WithLabelValues(endpoint).Inc()
				c.logger.Infow("Retrying upstream request after backoff",
					"endpoint", endpoint,
					"attempt", attempt,
					"backoff", backoff,
				)
				if err := c.sleep(ctx, backoff); err != nil {
					return nil, err
				}
			}

			body, retryable, err := c.attempt(ctx, endpoint, path)
			if err == nil {
				return body, nil
			}
			lastErr = err
			if errors.Is(err, errEmpty) {
				return nil, err
			}
			if !retryable && !retryAll {
				return nil, err
			}
		}
		return nil, lastErr
	})
	if err != nil {
		return nil, err
	}
	upstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return res.([]byte), nil
}

// attempt performs one HTTP round trip. retryable reports a 429 response.
func (c *Client) attempt(ctx context.Context, endpoint, path string) (body []byte, retryable bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if isEmptyPayload(body) {
			return nil, false, errEmpty
		}
		return body, false, nil
	case http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited by upstream (status %d)", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
}

// isEmptyPayload reports bodies that carry no data: "", null, {} and [].
func isEmptyPayload(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return true
	}
	switch trimmed[0] {
	case '{':
		var m map[string]json.RawMessage
		return json.Unmarshal(body, &m) == nil && len(m) == 0
	case '[':
		var a []json.RawMessage
		return json.Unmarshal(body, &a) == nil && len(a) == 0
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
