package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, zap.NewNop())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_SetGet(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if err := r.Set(ctx, "stocks", map[string]any{"ticker": "ZZZ"}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	var out map[string]any
	if err := r.Get(ctx, "stocks", &out); err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if out["ticker"] != "ZZZ" {
		t.Fatalf("got %+v", out)
	}
}

func TestRedis_GetMissing(t *testing.T) {
	r := newTestRedis(t)

	var out any
	if err := r.Get(context.Background(), "missing", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedis_UpdateMerges(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if err := r.Set(ctx, "marketState", map[string]any{"running": true, "user": "admin"}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	if err := r.Update(ctx, "marketState", map[string]any{"running": false}); err != nil {
		t.Fatalf("Update err=%v", err)
	}
	var doc map[string]any
	if err := r.Get(ctx, "marketState", &doc); err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if doc["running"] != false || doc["user"] != "admin" {
		t.Fatalf("merge lost fields: %+v", doc)
	}
}

func TestRedis_WatchSeesSnapshotAndWrites(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	if err := r.Set(ctx, "marketState", map[string]any{"running": false}); err != nil {
		t.Fatalf("Set err=%v", err)
	}

	ch, cancel, err := r.Watch(ctx, "marketState")
	if err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	defer cancel()

	first := recvRedisJSON(t, ch)
	if first["running"] != false {
		t.Fatalf("expected current snapshot first, got %+v", first)
	}

	if err := r.Set(ctx, "marketState", map[string]any{"running": true}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	next := recvRedisJSON(t, ch)
	if next["running"] != true {
		t.Fatalf("expected published write, got %+v", next)
	}
}

func TestRedis_CancelClosesChannel(t *testing.T) {
	r := newTestRedis(t)

	ch, cancel, err := r.Watch(context.Background(), "stocks")
	if err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func recvRedisJSON(t *testing.T, ch <-chan []byte) map[string]any {
	t.Helper()
	select {
	case raw, ok := <-ch:
		if !ok {
			t.Fatalf("watch channel closed")
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("bad snapshot %q: %v", raw, err)
		}
		return doc
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}
