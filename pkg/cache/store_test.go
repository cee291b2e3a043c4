package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/torxx666/rainy-day/pkg/clock"
)

func TestMemoryStore_PutThenGet(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
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

func TestMemoryStore_MissForUnknownKey(t *testing.T) {
	store := NewMemoryStore(clock.NewFake(time.Now()))

	_, err := store.Get(context.Background(), Key("Atlantis"))
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want ErrMiss", err)
	}
}

func TestMemoryStore_ExpiredEntryRetainedAsStale(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
	ctx := context.Background()

	if err := store.Put(ctx, Key("Tokyo"), []byte("v1"), 300*time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	clk.Advance(400 * time.Second)

	entry, err := store.Get(ctx, Key("Tokyo"))
	if err != nil {
		t.Fatalf("Get() after expiry error = %v, want retained stale entry", err)
	}
	if entry.FreshAt(clk.Now()) {
		t.Error("entry should be stale 400s after a 300s TTL write")
	}
	if string(entry.Data) != "v1" {
		t.Errorf("stale Data = %s, want v1", entry.Data)
	}
}

func TestMemoryStore_OverwriteResetsFreshness(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
	ctx := context.Background()

	if err := store.Put(ctx, Key("Berlin"), []byte("v1"), 300*time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	clk.Advance(400 * time.Second)

	if err := store.Put(ctx, Key("Berlin"), []byte("v2"), 300*time.Second); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	entry, err := store.Get(ctx, Key("Berlin"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !entry.FreshAt(clk.Now()) {
		t.Error("overwritten entry should be fresh again")
	}
	if string(entry.Data) != "v2" {
		t.Errorf("Data = %s, want v2", entry.Data)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	clk := clock.NewFake(time.Now())
	store := NewMemoryStore(clk)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := Key(fmt.Sprintf("city-%d", n%5))
			for j := 0; j < 100; j++ {
				_ = store.Put(ctx, key, []byte("payload"), time.Minute)
				if entry, err := store.Get(ctx, key); err == nil {
					// A reader must never observe a half-written entry.
					if string(entry.Data) != "payload" {
						t.Errorf("observed torn entry: %q", entry.Data)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 5 {
		t.Errorf("Len() = %d, want 5", store.Len())
	}
}
