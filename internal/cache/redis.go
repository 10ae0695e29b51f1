package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
)

const defaultTTL = time.Hour

type entry struct {
	ID        string    `json:"id"`
	Rating    float64   `json:"rating"`
	Votes     int64     `json:"votes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Value and version keys share a hash tag so the fill script touches a single slot.
func valueKey(id string) string   { return "imdb:rating:{" + id + "}" }
func versionKey(id string) string { return "imdb:rating:{" + id + "}:ver" }

// fillScript writes the value only if the version key still holds the
// version observed on the miss. A missing version key reads as "0".
var fillScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache keeps recently looked-up ratings in Redis. Every id carries an
// invalidation counter; fills computed before an invalidation are discarded.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Get returns the cached rating for id. On a miss it returns the current
// version of id, which must be handed back to Fill.
func (c *RedisCache) Get(ctx context.Context, id string) (rating domain.Rating, version int64, hit bool, err error) {
	vals, err := c.client.MGet(ctx, valueKey(id), versionKey(id)).Result()
	if err != nil {
		return domain.Rating{}, 0, false, err
	}

	if raw, ok := vals[1].(string); ok {
		version, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Rating{}, 0, false, fmt.Errorf("parse cache version %s: %w", id, err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return domain.Rating{}, version, false, nil
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return domain.Rating{}, 0, false, fmt.Errorf("decode cached rating %s: %w", id, err)
	}
	return domain.Rating{ID: e.ID, Rating: e.Rating, Votes: e.Votes, UpdatedAt: e.UpdatedAt}, version, true, nil
}

// Fill stores r if id has not been invalidated since version was read.
// A refused fill is not an error.
func (c *RedisCache) Fill(ctx context.Context, r domain.Rating, version int64) error {
	payload, err := json.Marshal(entry{ID: r.ID, Rating: r.Rating, Votes: r.Votes, UpdatedAt: r.UpdatedAt})
	if err != nil {
		return err
	}
	return fillScript.Run(ctx, c.client,
		[]string{valueKey(r.ID), versionKey(r.ID)},
		strconv.FormatInt(version, 10), payload, c.ttl.Milliseconds(),
	).Err()
}

// Invalidate drops the cached values for ids and bumps their versions, all in
// one pipelined round trip. Version keys outlive any fill that could race them.
func (c *RedisCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, valueKey(id))
			pipe.Incr(ctx, versionKey(id))
			pipe.PExpire(ctx, versionKey(id), c.ttl)
		}
		return nil
	})
	return err
}
