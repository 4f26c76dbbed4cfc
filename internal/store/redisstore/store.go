package redisstore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

// Store keeps login sessions in Redis so they can be revoked on logout and
// expire server-side.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) CreateSession(ctx context.Context, sessionID string, userID uint64, ttl time.Duration) error {
	return s.rdb.Set(ctx, sessionKeyPrefix+sessionID, strconv.FormatUint(userID, 10), ttl).Err()
}

func (s *Store) SessionUserID(ctx context.Context, sessionID string) (uint64, error) {
	v, err := s.rdb.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKeyPrefix+sessionID).Err()
}
