package transport

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpen_UnknownKind(t *testing.T) {
	ctx := context.Background()
	o := Options{Kind: "nats", Brokers: []string{"localhost:4222"}}

	if _, err := OpenSource(ctx, o); err == nil {
		t.Error("expected error for unknown source kind")
	}
	if _, err := OpenSink(ctx, o); err == nil {
		t.Error("expected error for unknown sink kind")
	}
}

func TestOpen_RedisRequiresAddress(t *testing.T) {
	if _, err := OpenSource(context.Background(), Options{Kind: KindRedis}); err == nil {
		t.Error("expected error without broker address")
	}
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	o := Options{
		Kind:     KindRedis,
		Brokers:  []string{mr.Addr()},
		Topic:    "trade-data",
		Group:    "rsi-calculator",
		Consumer: "worker-1",
	}

	src, err := OpenSource(ctx, o)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()
	if err := src.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}

	sink, err := OpenSink(ctx, o)
	if err != nil {
		t.Fatalf("OpenSink: %v", err)
	}
	defer sink.Close()
	if err := sink.Send(ctx, "rsi-data", "TOKEN1", []byte(`{}`)); err != nil {
		t.Errorf("Send: %v", err)
	}
}

func TestOpen_KafkaIsLazy(t *testing.T) {
	o := Options{Kind: "KAFKA", Brokers: []string{"127.0.0.1:1"}, Topic: "trade-data", Group: "g"}

	src, err := OpenSource(context.Background(), o)
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	src.Close()

	sink, err := OpenSink(context.Background(), o)
	if err != nil {
		t.Fatalf("OpenSink: %v", err)
	}
	sink.Close()
}
