package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/xo-messenger-bot/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each session as a JSON value under xo:session:<conversation id>.
// Updates use WATCH/MULTI and are retried when another writer commits first.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to redisURL. ttl <= 0 keeps sessions without expiry.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis session store")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client; the store owns it afterwards.
func NewRedisStoreWithClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Client exposes the underlying connection for components sharing it (result ledger).
func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	id, err := normalizeKey(conversationID)
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Update(ctx context.Context, conversationID string, fn Mutator) (*Session, error) {
	id, err := normalizeKey(conversationID)
	if err != nil {
		return nil, err
	}
	key := sessionKey(id)

	var result *Session
	txf := func(tx *redis.Tx) error {
		var cur *Session
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if cur, err = decode(raw); err != nil {
				return err
			}
		}

		next, err := apply(id, cur, fn)
		if err != nil {
			return err
		}
		if next == nil {
			result = cur
			return nil
		}
		payload, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err = s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		obslog.L().Debug("session_update_retry", zap.String("conversation_id", id), zap.Int("attempt", attempt))
		if err := sleepWithContext(ctx, retryDelay(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}

func sessionKey(id string) string { return "xo:session:" + strings.TrimSpace(id) }

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /<db> path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}

func retryDelay(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(attempt) * 2 * time.Millisecond
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
