package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evstation/charge-station/internal/adapter/cache"
	"github.com/evstation/charge-station/internal/domain"
)

// TestRedis_CacheAdapter exercises the ports.Cache implementation
// (internal/adapter/cache.RedisCache) the server optionally wires in
// front of the admin reports route, rather than the raw redis.Client.
func TestRedis_CacheAdapter(t *testing.T) {
	env := SetupTestEnvironment(t)
	if env == nil || env.Redis == nil {
		t.Skip("Redis not available")
	}

	FlushRedis(t, env.Redis)
	ctx := context.Background()

	addr := env.Redis.Options().Addr
	c, err := cache.NewRedisCache("redis://"+addr, env.Logger)
	if err != nil {
		t.Fatalf("Failed to build cache adapter: %v", err)
	}

	pile := domain.ChargingPile{
		PileID:  "F01",
		Type:    domain.ModeFast,
		PowerKW: 30,
		State:   domain.PileIdle,
	}

	t.Run("SetGet", func(t *testing.T) {
		data, err := json.Marshal(pile)
		if err != nil {
			t.Fatalf("Failed to marshal pile: %v", err)
		}
		if err := c.Set(ctx, "pile:F01", data, time.Minute); err != nil {
			t.Fatalf("Failed to cache pile: %v", err)
		}

		raw, err := c.Get(ctx, "pile:F01")
		if err != nil {
			t.Fatalf("Failed to read cached pile: %v", err)
		}

		var got domain.ChargingPile
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("Failed to unmarshal cached pile: %v", err)
		}
		if got.PileID != "F01" || got.PowerKW != 30 {
			t.Errorf("cached pile mismatch: %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := c.Delete(ctx, "pile:F01"); err != nil {
			t.Fatalf("Failed to delete cached pile: %v", err)
		}
		if _, err := c.Get(ctx, "pile:F01"); err != redis.Nil {
			t.Errorf("expected cache miss after delete, got err=%v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := c.Ping(); err != nil {
			t.Errorf("expected ping to succeed, got %v", err)
		}
	})

	if err := c.Close(); err != nil {
		t.Errorf("Failed to close cache adapter: %v", err)
	}
}

// TestRedis_PileQueueSnapshot stores a pile's queue in Redis as JSON
// through the raw client and reads it back unchanged.
func TestRedis_PileQueueSnapshot(t *testing.T) {
	env := SetupTestEnvironment(t)
	if env == nil || env.Redis == nil {
		t.Skip("Redis not available")
	}

	FlushRedis(t, env.Redis)
	ctx := context.Background()

	queue := []string{"CAR-001", "CAR-002"}
	data, err := json.Marshal(queue)
	if err != nil {
		t.Fatalf("Failed to marshal queue: %v", err)
	}

	if err := env.Redis.Set(ctx, "pile:F01:queue", data, time.Minute).Err(); err != nil {
		t.Fatalf("Failed to store queue snapshot: %v", err)
	}

	raw, err := env.Redis.Get(ctx, "pile:F01:queue").Bytes()
	if err != nil {
		t.Fatalf("Failed to read queue snapshot: %v", err)
	}

	var got []string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Failed to unmarshal queue snapshot: %v", err)
	}
	if len(got) != 2 || got[0] != "CAR-001" {
		t.Errorf("unexpected queue snapshot: %v", got)
	}
}

// TestRedis_Expiration verifies a key set with a TTL is gone once the
// TTL has passed.
func TestRedis_Expiration(t *testing.T) {
	env := SetupTestEnvironment(t)
	if env == nil || env.Redis == nil {
		t.Skip("Redis not available")
	}

	FlushRedis(t, env.Redis)
	ctx := context.Background()

	if err := env.Redis.Set(ctx, "pile:T01:state", "CHARGING", 100*time.Millisecond).Err(); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	if _, err := env.Redis.Get(ctx, "pile:T01:state").Result(); err != nil {
		t.Fatalf("Key should exist immediately after set: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := env.Redis.Get(ctx, "pile:T01:state").Result(); err != redis.Nil {
		t.Error("Key should have expired")
	}
}
