// Package kafka adapts segmentio/kafka-go readers and writers to the
// pipeline's transport ports, for Kafka-API brokers such as Redpanda.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"rsi-engine/internal/breaker"
	"rsi-engine/internal/model"

	kafkago "github.com/segmentio/kafka-go"
)

const receiveBackoff = 500 * time.Millisecond

// SourceConfig configures a consumer-group reader on one topic.
type SourceConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// Source reads one topic through a consumer group. New groups start at the
// earliest offset; offsets are committed explicitly per message.
type Source struct {
	reader  *kafkago.Reader
	brokers []string
	topic   string
}

// NewSource creates the reader. Connection happens lazily on first fetch.
func NewSource(cfg SourceConfig) (*Source, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.Group,
		Topic:          cfg.Topic,
		StartOffset:    kafkago.FirstOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
	log.Printf("[kafka-source] brokers=%v topic=%s group=%s", cfg.Brokers, cfg.Topic, cfg.Group)
	return &Source{reader: r, brokers: cfg.Brokers, topic: cfg.Topic}, nil
}

// Next fetches the next record without committing it.
func (s *Source) Next(ctx context.Context) (model.Message, error) {
	m, err := s.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return model.Message{}, ctx.Err()
		}
		select {
		case <-time.After(receiveBackoff):
		case <-ctx.Done():
		}
		return model.Message{}, fmt.Errorf("kafka fetch %s: %w", s.topic, err)
	}
	return toMessage(m), nil
}

// Commit commits the offset of msg for the consumer group.
func (s *Source) Commit(ctx context.Context, msg model.Message) error {
	m, ok := msg.Ack().(kafkago.Message)
	if !ok {
		return fmt.Errorf("kafka commit %s: message not from this source", msg.ID)
	}
	if err := s.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("kafka commit %s: %w", msg.ID, err)
	}
	return nil
}

// Ping dials the first reachable broker, for health probes.
func (s *Source) Ping(ctx context.Context) error {
	return ping(ctx, s.brokers)
}

// Close closes the reader and leaves the group.
func (s *Source) Close() error {
	return s.reader.Close()
}

func toMessage(m kafkago.Message) model.Message {
	msg := model.Message{
		ID:    strconv.Itoa(m.Partition) + "/" + strconv.FormatInt(m.Offset, 10),
		Key:   string(m.Key),
		Topic: m.Topic,
	}
	if m.Value != nil {
		msg.Payload = m.Value
	}
	return msg.WithAck(m)
}

// SinkConfig configures the Kafka writer.
type SinkConfig struct {
	Brokers     []string
	SendTimeout time.Duration    // broker delivery cap (default 5s)
	Breaker     *breaker.Breaker // optional
}

// Sink writes keyed records; the key selects the partition via hashing, so
// all events for one instrument land on one partition in order.
type Sink struct {
	writer *kafkago.Writer
	cb     *breaker.Breaker
}

// NewSink creates the writer. Topics are chosen per record.
func NewSink(cfg SinkConfig) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		WriteTimeout: timeout,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	log.Printf("[kafka-sink] brokers=%v timeout=%s", cfg.Brokers, timeout)
	return &Sink{writer: w, cb: cfg.Breaker}, nil
}

// Send writes one record and waits for the broker acknowledgement.
func (s *Sink) Send(ctx context.Context, topic, key string, payload []byte) error {
	return s.cb.Do(func() error {
		err := s.writer.WriteMessages(ctx, kafkago.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: payload,
		})
		if err != nil {
			return fmt.Errorf("kafka write %s/%s: %w", topic, key, err)
		}
		return nil
	})
}

// Close flushes pending writes and closes connections.
func (s *Sink) Close() error {
	return s.writer.Close()
}

func ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, b := range brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}
