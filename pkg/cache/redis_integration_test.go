//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/torxx666/rainy-day/pkg/clock"
)

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_PutThenGet(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	clk := clock.New()
	store := NewRedisStore(rdb, clk, 4)
	ctx := context.Background()

	if err := store.Put(ctx, Key("Paris"), []byte(`{"temp":15.5}`), 300*time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	entry, err := store.Get(ctx, Key("Paris"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if string(entry.Data) != `{"temp":15.5}` {
		t.Errorf("Data = %s, want original payload", entry.Data)
	}
	if !entry.FreshAt(clk.Now()) {
		t.Error("entry should be fresh immediately after Put")
	}
}

func TestRedisStore_Integration_StaleRetention(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	clk := clock.New()
	// 1s freshness, 4s retention: stale between 1s and 4s.
	store := NewRedisStore(rdb, clk, 4)
	ctx := context.Background()

	if err := store.Put(ctx, Key("Tokyo"), []byte("v1"), time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	entry, err := store.Get(ctx, Key("Tokyo"))
	if err != nil {
		t.Fatalf("Get() after freshness expiry error = %v, want stale entry", err)
	}
	if entry.FreshAt(clk.Now()) {
		t.Error("entry should be stale after its freshness TTL")
	}
}

func TestRedisStore_Integration_MissAfterRetention(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(rdb, clock.New(), 1)
	ctx := context.Background()

	if err := store.Put(ctx, Key("Berlin"), []byte("v1"), time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := store.Get(ctx, Key("Berlin")); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after retention = %v, want ErrMiss", err)
	}
}
