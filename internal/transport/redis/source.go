package redis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"rsi-engine/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const receiveBackoff = 500 * time.Millisecond

// SourceConfig configures a consumer-group reader on one stream.
type SourceConfig struct {
	Addr     string
	Password string
	DB       int

	Stream   string // inbound stream, e.g. "trade-data"
	Group    string // consumer group, e.g. "rsi-calculator"
	Consumer string // unique consumer name within the group

	BatchSize int64         // entries fetched per XREADGROUP (default 100)
	Block     time.Duration // XREADGROUP block timeout (default 2s)
}

// Source reads one stream through a consumer group with at-least-once
// delivery. On start it first drains this consumer's own pending entries
// (left unacknowledged by a previous run), then switches to new entries.
type Source struct {
	client   *goredis.Client
	stream   string
	group    string
	consumer string
	batch    int64
	block    time.Duration

	readID  string // "0" while draining the PEL, then ">"
	pending []goredis.XMessage
}

// NewSource connects, pings, and ensures the consumer group exists.
// A new group starts at the beginning of the stream.
func NewSource(ctx context.Context, cfg SourceConfig) (*Source, error) {
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

	s := &Source{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		batch:    cfg.BatchSize,
		block:    cfg.Block,
		readID:   "0",
	}
	if s.batch <= 0 {
		s.batch = 100
	}
	if s.block <= 0 {
		s.block = 2 * time.Second
	}

	if err := s.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}

	log.Printf("[redis-source] connected to %s (stream=%s, group=%s, consumer=%s)",
		cfg.Addr, s.stream, s.group, s.consumer)
	return s, nil
}

func (s *Source) ensureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s: %w", s.stream, err)
	}
	return nil
}

// Next returns the next entry, fetching a new batch when the local one is
// drained. Block timeouts are retried internally; any other failure is
// returned after a short backoff so callers can simply call Next again.
func (s *Source) Next(ctx context.Context) (model.Message, error) {
	for len(s.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return model.Message{}, err
		}

		results, err := s.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.stream, s.readID},
			Count:    s.batch,
			Block:    s.block,
		}).Result()
		if err == goredis.Nil {
			// Block timeout, or nothing left in our PEL.
			s.readID = ">"
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return model.Message{}, ctx.Err()
			}
			if strings.HasPrefix(err.Error(), "NOGROUP") {
				// Stream or group was deleted underneath us.
				if gerr := s.ensureGroup(ctx); gerr != nil {
					log.Printf("[redis-source] recreate group failed: %v", gerr)
				}
			}
			select {
			case <-time.After(receiveBackoff):
			case <-ctx.Done():
			}
			return model.Message{}, fmt.Errorf("xreadgroup %s: %w", s.stream, err)
		}

		for _, st := range results {
			s.pending = append(s.pending, st.Messages...)
		}
		if len(s.pending) == 0 && s.readID == "0" {
			s.readID = ">"
		}
	}

	xm := s.pending[0]
	s.pending = s.pending[1:]
	return toMessage(s.stream, xm), nil
}

// Commit acknowledges msg in the consumer group.
func (s *Source) Commit(ctx context.Context, msg model.Message) error {
	if err := s.client.XAck(ctx, s.stream, s.group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack %s %s: %w", s.stream, msg.ID, err)
	}
	return nil
}

// Ping checks connectivity, for health probes.
func (s *Source) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Source) Close() error {
	return s.client.Close()
}

// toMessage maps a stream entry to a model.Message. The body lives in the
// "data" field; an entry without it (or a trimmed PEL entry with no values)
// yields a nil Payload.
func toMessage(stream string, xm goredis.XMessage) model.Message {
	msg := model.Message{ID: xm.ID, Topic: stream}
	if data, ok := xm.Values["data"].(string); ok {
		msg.Payload = []byte(data)
	}
	if key, ok := xm.Values["key"].(string); ok {
		msg.Key = key
	}
	return msg
}
