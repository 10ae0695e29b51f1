package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func cleanupKeys(ctx context.Context, client *redis.Client, ids ...string) {
	for _, id := range ids {
		client.Del(ctx, valueKey(id), versionKey(id))
	}
}

func TestRedisCache_FillGetInvalidate(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)
	cleanupKeys(ctx, client, "tt9900001", "tt9900002")
	defer cleanupKeys(ctx, client, "tt9900001", "tt9900002")

	_, version, hit, err := c.Get(ctx, "tt9900001")
	if err != nil || hit {
		t.Fatalf("Get on empty cache = hit %v, err %v; want miss", hit, err)
	}
	if version != 0 {
		t.Fatalf("version on fresh id = %d, want 0", version)
	}

	want := domain.Rating{ID: "tt9900001", Rating: 8.5, Votes: 1000, UpdatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	if err := c.Fill(ctx, want, version); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	got, _, hit, err := c.Get(ctx, "tt9900001")
	if err != nil || !hit {
		t.Fatalf("Get after Fill = hit %v, err %v", hit, err)
	}
	if got.ID != want.ID || got.Rating != want.Rating || got.Votes != want.Votes || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}

	if err := c.Invalidate(ctx, "tt9900001", "tt9900002"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, version, hit, _ = c.Get(ctx, "tt9900001")
	if hit {
		t.Fatalf("entry survived invalidation")
	}
	if version != 1 {
		t.Fatalf("version after Invalidate = %d, want 1", version)
	}
}

func TestRedisCache_FillRefusedAfterInvalidate(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)
	cleanupKeys(ctx, client, "tt9900004")
	defer cleanupKeys(ctx, client, "tt9900004")

	_, seen, _, err := c.Get(ctx, "tt9900004")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// A batch lands between the miss and the fill.
	if err := c.Invalidate(ctx, "tt9900004"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	stale := domain.Rating{ID: "tt9900004", Rating: 5.0, Votes: 1}
	if err := c.Fill(ctx, stale, seen); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if _, _, hit, _ := c.Get(ctx, "tt9900004"); hit {
		t.Fatalf("stale fill was stored after invalidation")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, 30*time.Second)
	cleanupKeys(ctx, client, "tt9900003")
	defer cleanupKeys(ctx, client, "tt9900003")
	if err := c.Fill(ctx, domain.Rating{ID: "tt9900003", Rating: 1.0, Votes: 1}, 0); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	ttl, err := client.PTTL(ctx, valueKey("tt9900003")).Result()
	if err != nil {
		t.Fatalf("PTTL: %v", err)
	}
	if ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("TTL = %s, want within (0, 30s]", ttl)
	}
}

func TestRedisCache_InvalidateNoIDs(t *testing.T) {
	c := NewRedisCache(nil, time.Minute)
	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate() with no ids = %v, want nil", err)
	}
}
