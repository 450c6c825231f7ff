package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"rsi-engine/internal/breaker"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultMaxLen    = 10000
	defaultLatestTTL = 30 * time.Minute
)

// SinkConfig configures the Redis stream writer.
type SinkConfig struct {
	Addr     string
	Password string
	DB       int

	MaxLen      int64            // approximate stream cap per topic (default 10000)
	SendTimeout time.Duration    // per-send cap (default 5s)
	Breaker     *breaker.Breaker // optional
}

// Sink writes keyed records to Redis Streams. Each Send is one pipelined
// round trip: XADD to the topic stream, SET of the latest value per key,
// and PUBLISH on "pub:{topic}:{key}" for live subscribers.
type Sink struct {
	client  *goredis.Client
	maxLen  int64
	timeout time.Duration
	cb      *breaker.Breaker
}

// NewSink connects and pings the server.
func NewSink(ctx context.Context, cfg SinkConfig) (*Sink, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	s := &Sink{
		client:  client,
		maxLen:  cfg.MaxLen,
		timeout: cfg.SendTimeout,
		cb:      cfg.Breaker,
	}
	if s.maxLen <= 0 {
		s.maxLen = defaultMaxLen
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}

	log.Printf("[redis-sink] connected to %s", cfg.Addr)
	return s, nil
}

// LatestKey returns the key holding the newest payload for (topic, key).
func LatestKey(topic, key string) string {
	return topic + ":latest:" + key
}

// PubSubChannel returns the live channel for (topic, key).
func PubSubChannel(topic, key string) string {
	return "pub:" + topic + ":" + key
}

// Send delivers one record. Failures are returned, never retried or buffered.
func (s *Sink) Send(ctx context.Context, topic, key string, payload []byte) error {
	return s.cb.Do(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		data := string(payload)
		pipe := s.client.Pipeline()
		pipe.XAdd(cctx, &goredis.XAddArgs{
			Stream: topic,
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"key":  key,
				"data": data,
			},
		})
		pipe.Set(cctx, LatestKey(topic, key), data, defaultLatestTTL)
		pipe.Publish(cctx, PubSubChannel(topic, key), data)

		if _, err := pipe.Exec(cctx); err != nil {
			return fmt.Errorf("redis pipeline %s/%s: %w", topic, key, err)
		}
		return nil
	})
}

// Close closes the Redis client.
func (s *Sink) Close() error {
	return s.client.Close()
}
