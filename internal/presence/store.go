package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store mirrors online/offline state into Redis so that other services can
// read presence without holding a socket to this instance.
//
// Keys:
//   - <prefix>:online            set of online user ids
//   - <prefix>:last_seen:<user>  unix timestamp of the last disconnect
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) onlineKey() string { return s.prefix + ":online" }

func (s *Store) lastSeenKey(userID string) string { return s.prefix + ":last_seen:" + userID }

// MarkOnline adds the user to the online set.
func (s *Store) MarkOnline(ctx context.Context, userID string) error {
	return s.client.SAdd(ctx, s.onlineKey(), userID).Err()
}

// MarkOffline removes the user from the online set and records when they left.
func (s *Store) MarkOffline(ctx context.Context, userID string) error {
	if err := s.client.SRem(ctx, s.onlineKey(), userID).Err(); err != nil {
		return err
	}
	return s.client.Set(ctx, s.lastSeenKey(userID), time.Now().Unix(), s.ttl).Err()
}

// IsOnline reports whether the user currently holds a connection anywhere.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	return s.client.SIsMember(ctx, s.onlineKey(), userID).Result()
}

// LastSeen returns when the user last disconnected. Zero time when unknown or
// expired.
func (s *Store) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	unix, err := s.client.Get(ctx, s.lastSeenKey(userID)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}
