// Command publisher sends a watchlist event to the prediction service's
// Pub/Sub channel. It is a local testing aid.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/models"
)

func main() {
	_ = godotenv.Load()

	var (
		addr      = flag.String("redis", envOr("REDIS_ADDR", "localhost:6379"), "Redis address")
		password  = flag.String("password", os.Getenv("REDIS_PASSWORD"), "Redis password")
		db        = flag.Int("db", 1, "Redis database")
		channel   = flag.String("channel", envOr("WATCHLIST_CHANNEL", "watchlist-events"), "Pub/Sub channel")
		player    = flag.String("player", "LeBron James", "player name")
		eventType = flag.String("type", models.EventPlayerAdded, "event type (PLAYER_ADDED or PLAYER_REMOVED)")
		userID    = flag.Int64("user", 1, "user ID")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()
	sugar := logger.Sugar()

	ts, _ := json.Marshal(time.Now().UTC().Format("2006-01-02T15:04:05"))
	event := models.WatchlistEvent{
		EventType:  *eventType,
		PlayerName: *player,
		UserID:     userID,
		Timestamp:  ts,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		sugar.Fatalw("Failed to marshal event", "error", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: *addr, Password: *password, DB: *db})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	receivers, err := rdb.Publish(ctx, *channel, payload).Result()
	if err != nil {
		sugar.Fatalw("Failed to publish event", "addr", *addr, "channel", *channel, "error", err)
	}

	sugar.Infow("Event published",
		"channel", *channel,
		"eventType", event.EventType,
		"player", event.PlayerName,
		"receivers", receivers,
	)
	if receivers == 0 {
		fmt.Fprintln(os.Stderr, "warning: no subscribers on channel; is the prediction service running?")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
