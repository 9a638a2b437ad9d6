package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/statsclient"
)

const maxCollectLimit = 100

type collectorService struct {
	stats  StatsClient
	store  GameLogStore
	logger *zap.SugaredLogger
}

func NewCollectorService(stats StatsClient, store GameLogStore, logger *zap.Logger) CollectorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &collectorService{stats: stats, store: store, logger: logger.Sugar()}
}

// CollectGameLogs stores the recent games of a player and returns how many
// were new. Games already stored for the same date are skipped. An upstream
// without data is not an error.
func (c *collectorService) CollectGameLogs(ctx context.Context, playerName string, limit int) (int, error) {
	playerName = strings.TrimSpace(playerName)
	if limit <= 0 {
		limit = defaultCollectLimit
	}
	if limit > maxCollectLimit {
		limit = maxCollectLimit
	}

	games, err := c.stats.GetPlayerGameLog(ctx, playerName, limit)
	if err != nil {
		if errors.Is(err, statsclient.ErrUnavailable) {
			c.logger.Infow("No game log available", "player", playerName, "error", err)
			return 0, nil
		}
		return 0, fmt.Errorf("fetch game log: %w", err)
	}

	stored := 0
	for _, g := range games {
		inserted, err := c.store.InsertGameLog(ctx, g)
		if err != nil {
			return stored, fmt.Errorf("store game log for %s on %s: %w", playerName, g.GameDate.Format("2006-01-02"), err)
		}
		if inserted {
			stored++
		}
	}

	c.logger.Infow("Collected game logs", "player", playerName, "fetched", len(games), "stored", stored)
	return stored, nil
}
