package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps results as JSON under xo:result:<game id> and a per-conversation list of
// game ids, newest first, trimmed to keep entries.
type RedisRepository struct {
	rdb  *redis.Client
	keep int64
}

func NewRedisRepository(rdb *redis.Client, keep int) *RedisRepository {
	if keep <= 0 {
		keep = 50
	}
	return &RedisRepository{rdb: rdb, keep: int64(keep)}
}

func (r *RedisRepository) Record(ctx context.Context, res *Result) error {
	if r == nil || r.rdb == nil || res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	// SETNX makes a repeated record of the same game a no-op for the index.
	created, err := r.rdb.SetNX(ctx, resultKey(res.GameID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis set result: %w", err)
	}
	if !created {
		return r.rdb.Set(ctx, resultKey(res.GameID), raw, 0).Err()
	}
	listKey := conversationKey(res.ConversationID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, listKey, res.GameID)
		pipe.LTrim(ctx, listKey, 0, r.keep-1)
		return nil
	})
	return err
}

func (r *RedisRepository) Recent(ctx context.Context, conversationID string, limit int) ([]*Result, error) {
	ids, err := r.rdb.LRange(ctx, conversationKey(conversationID), 0, int64(clampLimit(limit))-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list results: %w", err)
	}
	out := make([]*Result, 0, len(ids))
	for _, id := range ids {
		raw, err := r.rdb.Get(ctx, resultKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var res Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, &res)
	}
	return out, nil
}

func resultKey(gameID string) string { return "xo:result:" + strings.TrimSpace(gameID) }
func conversationKey(id string) string {
	return "xo:results:conversation:" + strings.TrimSpace(id)
}
