// Package events consumes watchlist events from Redis Pub/Sub and triggers
// prediction generation for newly watched players.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/models"
)

// ErrSubscriptionLost is returned by Run when the subscription cannot be
// established or keeps failing. The process is expected to exit.
var ErrSubscriptionLost = errors.New("watchlist subscription lost")

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "prediction_watchlist_events_total",
	Help: "Watchlist events by type and outcome",
}, []string{"type", "outcome"})

// Generator is the part of the prediction service the listener drives.
type Generator interface {
	GeneratePrediction(ctx context.Context, playerName string, opts logic.GenerateOptions) (*models.PredictionRecord, error)
}

type Config struct {
	Client      *redis.Client
	Channel     string
	Generator   Generator
	Logger      *zap.Logger
	MaxFailures int
	RetryDelay  time.Duration

	// HandlerTimeout bounds the work triggered by one event.
	HandlerTimeout time.Duration
}

type Listener struct {
	client         *redis.Client
	channel        string
	generator      Generator
	validator      *validator.Validate
	logger         *zap.SugaredLogger
	maxFailures    int
	retryDelay     time.Duration
	handlerTimeout time.Duration
}

func NewListener(cfg Config) *Listener {
	if cfg.Channel == "" {
		cfg.Channel = "watchlist-events"
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Listener{
		client:         cfg.Client,
		channel:        cfg.Channel,
		generator:      cfg.Generator,
		validator:      models.NewValidator(),
		logger:         cfg.Logger.Sugar(),
		maxFailures:    cfg.MaxFailures,
		retryDelay:     cfg.RetryDelay,
		handlerTimeout: cfg.HandlerTimeout,
	}
}

// Run subscribes and processes messages one at a time until ctx is
// cancelled (returns nil) or the subscription is lost.
func (l *Listener) Run(ctx context.Context) error {
	pubsub := l.client.Subscribe(ctx, l.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%w: subscribe %s: %v", ErrSubscriptionLost, l.channel, err)
	}
	l.logger.Infow("Subscribed to watchlist events", "channel", l.channel)

	// ReceiveMessage does not watch ctx; closing the subscription unblocks it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			pubsub.Close()
		case <-stop:
		}
	}()

	failures := 0
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("Watchlist listener stopped")
				return nil
			}
			failures++
			if failures >= l.maxFailures {
				return fmt.Errorf("%w: %d consecutive receive errors, last: %v", ErrSubscriptionLost, failures, err)
			}
			backoff := l.retryDelay * time.Duration(1<<uint(failures-1))
			l.logger.Warnw("Watchlist receive failed, retrying",
				"error", err,
				"failures", failures,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		failures = 0
		l.handleMessage(ctx, msg.Payload)
	}
}

// handleMessage processes one payload. Malformed or unknown events are
// logged and dropped; nothing here ends the loop.
func (l *Listener) handleMessage(ctx context.Context, payload string) {
	var evt models.WatchlistEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		eventsReceived.WithLabelValues("unknown", "malformed").Inc()
		l.logger.Warnw("Discarding malformed watchlist event", "error", err)
		return
	}
	if err := l.validator.Struct(evt); err != nil {
		eventsReceived.WithLabelValues("unknown", "invalid").Inc()
		l.logger.Warnw("Discarding invalid watchlist event", "error", err, "eventType", evt.EventType)
		return
	}

	switch evt.EventType {
	case models.EventPlayerAdded:
		l.logger.Infow("Player added to watchlist", "player", evt.PlayerName, "userId", evt.UserID)

		hctx, cancel := context.WithTimeout(ctx, l.handlerTimeout)
		defer cancel()
		rec, err := l.generator.GeneratePrediction(hctx, evt.PlayerName, logic.GenerateOptions{
			ForceRefresh:        true,
			CollectTrainingData: true,
		})
		if err != nil {
			eventsReceived.WithLabelValues(evt.EventType, "error").Inc()
			l.logger.Warnw("Prediction for watched player failed", "player", evt.PlayerName, "error", err)
			return
		}
		eventsReceived.WithLabelValues(evt.EventType, "ok").Inc()
		l.logger.Infow("Prediction generated for watched player", "player", evt.PlayerName, "predictionId", rec.ID)
	default:
		eventsReceived.WithLabelValues(evt.EventType, "ignored").Inc()
		l.logger.Infow("Ignoring watchlist event", "eventType", evt.EventType, "player", evt.PlayerName)
	}
}
