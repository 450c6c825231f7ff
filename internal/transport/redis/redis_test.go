package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
)

func newTestSource(t *testing.T, mr *miniredis.Miniredis) *Source {
	t.Helper()
	src, err := NewSource(context.Background(), SourceConfig{
		Addr:     mr.Addr(),
		Stream:   "trade-data",
		Group:    "rsi-calculator",
		Consumer: "worker-1",
		Block:    50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestSinkThenSource_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	src := newTestSource(t, mr)
	sink, err := NewSink(ctx, SinkConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Close()

	for _, body := range []string{`{"n":1}`, `{"n":2}`} {
		if err := sink.Send(ctx, "trade-data", "TOKEN1", []byte(body)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		msg, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if string(msg.Payload) != want {
			t.Errorf("expected payload %s, got %s", want, msg.Payload)
		}
		if msg.Key != "TOKEN1" || msg.Topic != "trade-data" {
			t.Errorf("unexpected key/topic %q/%q", msg.Key, msg.Topic)
		}
		if err := src.Commit(ctx, msg); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	latest, err := mr.Get(LatestKey("trade-data", "TOKEN1"))
	if err != nil || latest != `{"n":2}` {
		t.Errorf("expected latest value {\"n\":2}, got %q (err=%v)", latest, err)
	}
}

func TestSource_MissingDataFieldYieldsNilPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	src := newTestSource(t, mr)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	if err := rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: "trade-data",
		Values: map[string]interface{}{"other": "x"},
	}).Err(); err != nil {
		t.Fatalf("XAdd: %v", err)
	}

	msg, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg.Payload != nil {
		t.Errorf("expected nil payload, got %q", msg.Payload)
	}
}

func TestSource_NextHonoursCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	src := newTestSource(t, mr)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := src.Next(ctx); err == nil {
		t.Fatal("expected an error once the context expires on an empty stream")
	}
}

func TestNewSource_GroupAlreadyExists(t *testing.T) {
	mr := miniredis.RunT(t)
	newTestSource(t, mr)
	// Second source on the same group must not fail on BUSYGROUP.
	newTestSource(t, mr)
}

func TestNewSink_PingFailure(t *testing.T) {
	_, err := NewSink(context.Background(), SinkConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected ping failure for unreachable address")
	}
}

func TestSource_RedeliversOwnPendingBeforeNewEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	sink, err := NewSink(ctx, SinkConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	defer sink.Close()

	cfg := SourceConfig{
		Addr:     mr.Addr(),
		Stream:   "trade-data",
		Group:    "rsi-calculator",
		Consumer: "worker-1",
		Block:    50 * time.Millisecond,
	}
	first, err := NewSource(ctx, cfg)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	for _, body := range []string{`{"n":1}`, `{"n":2}`} {
		if err := sink.Send(ctx, "trade-data", "TOKEN1", []byte(body)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	// Delivered but never committed: stays in worker-1's PEL.
	msg, err := first.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(msg.Payload) != `{"n":1}` {
		t.Fatalf("expected first entry, got %s", msg.Payload)
	}
	first.Close()

	if err := sink.Send(ctx, "trade-data", "TOKEN1", []byte(`{"n":3}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	second, err := NewSource(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		msg, err := second.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if string(msg.Payload) != want {
			t.Errorf("expected %s, got %s", want, msg.Payload)
		}
		if err := second.Commit(ctx, msg); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	pending, err := second.client.XPending(ctx, "trade-data", "rsi-calculator").Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("expected empty PEL after commits, got %d", pending.Count)
	}
}
