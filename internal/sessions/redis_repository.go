package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository using Redis as the backing store.
// Sessions are stored as JSON under "<prefix><refreshToken>" with
// TTL = expiresAt - now; a per-uid set "<prefix>uid:<uid>" tracks tokens so
// DeleteByUID can sign an identity out everywhere.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(refresh string) string {
	return r.prefix + refresh
}

func (r *RedisRepository) uidKey(uid string) string {
	return r.prefix + "uid:" + uid
}

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	exp := time.Until(s.ExpiresAt)
	if exp <= 0 {
		// ensure a minimal TTL so Redis won't store expired sessions
		exp = time.Second
	}
	if err := r.client.Set(ctx, r.key(s.RefreshToken), b, exp).Err(); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.uidKey(s.UID), s.RefreshToken).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, r.uidKey(s.UID), exp).Err()
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	b, err := r.client.Get(ctx, r.key(refresh)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	// If session expired from perspective of stored value, treat as missing
	if time.Now().UTC().After(s.ExpiresAt) {
		_ = r.client.Del(ctx, r.key(refresh)).Err()
		return nil, nil
	}
	return &s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	s, err := r.GetByRefresh(ctx, refresh)
	if err == nil && s != nil {
		_ = r.client.SRem(ctx, r.uidKey(s.UID), refresh).Err()
	}
	return r.client.Del(ctx, r.key(refresh)).Err()
}

func (r *RedisRepository) DeleteByUID(ctx context.Context, uid string) error {
	tokens, err := r.client.SMembers(ctx, r.uidKey(uid)).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, tok := range tokens {
		if err := r.client.Del(ctx, r.key(tok)).Err(); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, r.uidKey(uid)).Err()
}
