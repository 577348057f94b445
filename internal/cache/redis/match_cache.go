package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sportpools/matchpool/internal/domain"
)

// matchTTL is long enough to cover settlement lag after full time but short
// enough that abandoned fixtures eventually disappear.
const matchTTL = 24 * time.Hour

// MatchCache implements domain.MatchCache using Redis hashes with JSON-
// serialized score snapshots. The score feed writes, the API and settlement
// workers read.
//
// Key schema:
//
//	score:{match_id} - hash with field "data" containing JSON
type MatchCache struct {
	rdb *redis.Client
}

// NewMatchCache creates a MatchCache backed by the given Client.
func NewMatchCache(c *Client) *MatchCache {
	return &MatchCache{rdb: c.Underlying()}
}

func matchKey(matchID string) string { return "score:" + matchID }

// Set stores the latest score snapshot for a match.
func (mc *MatchCache) Set(ctx context.Context, match domain.MatchSnapshot) error {
	data, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("redis: marshal match %s: %w", match.MatchID, err)
	}

	key := matchKey(match.MatchID)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, matchTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set match %s: %w", match.MatchID, err)
	}
	return nil
}

// Get retrieves the latest score snapshot for a match.
// It returns domain.ErrNotFound when no score has been seen.
func (mc *MatchCache) Get(ctx context.Context, matchID string) (domain.MatchSnapshot, error) {
	data, err := mc.rdb.HGet(ctx, matchKey(matchID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MatchSnapshot{}, domain.ErrNotFound
		}
		return domain.MatchSnapshot{}, fmt.Errorf("redis: get match %s: %w", matchID, err)
	}

	var match domain.MatchSnapshot
	if err := json.Unmarshal(data, &match); err != nil {
		return domain.MatchSnapshot{}, fmt.Errorf("redis: unmarshal match %s: %w", matchID, err)
	}
	return match, nil
}

// Compile-time interface check.
var _ domain.MatchCache = (*MatchCache)(nil)
