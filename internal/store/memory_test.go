package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func recvJSON(t *testing.T, ch <-chan []byte) map[string]any {
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
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "stocks", []string{"AAPL"}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	var out []string
	if err := m.Get(ctx, "stocks", &out); err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if len(out) != 1 || out[0] != "AAPL" {
		t.Fatalf("got %+v", out)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	var out any
	if err := m.Get(context.Background(), "nope", &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_WatchDeliversCurrentThenWrites(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "marketState", map[string]any{"running": false}); err != nil {
		t.Fatalf("Set err=%v", err)
	}

	ch, cancel, err := m.Watch(ctx, "marketState")
	if err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	defer cancel()

	first := recvJSON(t, ch)
	if first["running"] != false {
		t.Fatalf("expected current value first, got %+v", first)
	}

	if err := m.Set(ctx, "marketState", map[string]any{"running": true}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	second := recvJSON(t, ch)
	if second["running"] != true {
		t.Fatalf("expected updated value, got %+v", second)
	}
}

func TestMemory_UpdateShallowMerge(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "marketState", map[string]any{"running": true, "user": "admin"}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	if err := m.Update(ctx, "marketState", map[string]any{"running": false}); err != nil {
		t.Fatalf("Update err=%v", err)
	}

	var doc map[string]any
	if err := m.Get(ctx, "marketState", &doc); err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if doc["running"] != false || doc["user"] != "admin" {
		t.Fatalf("merge lost fields: %+v", doc)
	}
}

func TestMemory_UpdateMissingDocCreatesIt(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Update(ctx, "marketController", map[string]any{"sessionId": "abc"}); err != nil {
		t.Fatalf("Update err=%v", err)
	}
	var doc map[string]any
	if err := m.Get(ctx, "marketController", &doc); err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if doc["sessionId"] != "abc" {
		t.Fatalf("got %+v", doc)
	}
}

func TestMemory_CancelStopsDelivery(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	ch, cancel, err := m.Watch(ctx, "stocks")
	if err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	// Writes after cancel must not panic or deliver.
	if err := m.Set(ctx, "stocks", []int{1}); err != nil {
		t.Fatalf("Set err=%v", err)
	}
	cancel() // idempotent
}

func TestMemory_WriteAfterCloseFails(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	ctx := context.Background()

	if err := m.Set(ctx, "stocks", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after close: expected ErrClosed, got %v", err)
	}
	if err := m.Update(ctx, "stocks", map[string]any{"a": 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Update after close: expected ErrClosed, got %v", err)
	}
	if _, _, err := m.Watch(ctx, "stocks"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Watch after close: expected ErrClosed, got %v", err)
	}
}

func TestMemory_SlowWatcherDropsOldest(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	ch, cancel, err := m.Watch(ctx, "counter")
	if err != nil {
		t.Fatalf("Watch err=%v", err)
	}
	defer cancel()

	total := watchBuffer * 3
	for i := 0; i < total; i++ {
		if err := m.Set(ctx, "counter", i); err != nil {
			t.Fatalf("Set err=%v", err)
		}
	}

	// Drain; the last delivered snapshot must be the final write.
	var last int
	for {
		select {
		case raw := <-ch:
			if err := json.Unmarshal(raw, &last); err != nil {
				t.Fatalf("bad snapshot: %v", err)
			}
		default:
			if last != total-1 {
				t.Fatalf("expected latest snapshot %d, got %d", total-1, last)
			}
			return
		}
	}
}
