// cache — опциональный Redis-кэш записей refresh-токенов.
//
// Кэш — только ускоритель чтения: корректность подсистемы от него не зависит.
// TTL ключа равен остаточному сроку жизни токена, поэтому просроченные записи
// исчезают из Redis сами. Помимо ключа по токену ведётся множество токенов
// пользователя, чтобы logout (revoke-all) мог инвалидировать кэш целиком.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Entry — кэшируемая часть записи refresh-токена.
type Entry struct {
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// RefreshCache — минимальный контракт кэша refresh-токенов.
type RefreshCache interface {
	// Get возвращает запись и признак её наличия в кэше.
	Get(ctx context.Context, token string) (*Entry, bool, error)
	// Set сохраняет запись с TTL (остаточный срок жизни токена).
	Set(ctx context.Context, token string, e *Entry, ttl time.Duration) error
	// Delete удаляет запись и её членство во множестве пользователя.
	Delete(ctx context.Context, token string, userID uuid.UUID) error
	// DeleteByUser удаляет все закэшированные токены пользователя.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rt:".
func NewRedisCache(redisURL, prefix string) (RefreshCache, error) {
	if prefix == "" {
		prefix = "auth:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(token string) string { return c.prefix + token }

func (c *redisCache) userKey(userID uuid.UUID) string {
	return c.prefix + "user:" + userID.String()
}

// Храним как Redis Hash с полями: uid, exp (unix).
func (c *redisCache) Get(ctx context.Context, token string) (*Entry, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(token)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	uid, err := uuid.Parse(m["uid"])
	if err != nil {
		return nil, false, err
	}

	expUnix, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &Entry{
		UserID:    uid,
		ExpiresAt: time.Unix(expUnix, 0).UTC(),
	}, true, nil
}

func (c *redisCache) Set(ctx context.Context, token string, e *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	kv := map[string]string{
		"uid": e.UserID.String(),
		"exp": strconv.FormatInt(e.ExpiresAt.Unix(), 10),
	}

	// Множество пользователя живёт без TTL: его целиком снимает DeleteByUser,
	// а осиротевшие элементы безвредны — сами записи истекают по своему TTL.
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(token), kv)
	pipe.Expire(ctx, c.key(token), ttl)
	pipe.SAdd(ctx, c.userKey(e.UserID), token)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Delete(ctx context.Context, token string, userID uuid.UUID) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, c.key(token))
	pipe.SRem(ctx, c.userKey(userID), token)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	tokens, err := c.rdb.SMembers(ctx, c.userKey(userID)).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, c.key(t))
	}
	keys = append(keys, c.userKey(userID))

	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
