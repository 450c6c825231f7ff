package model

import "context"

// ── Transport Port Interfaces ──
// These interfaces decouple the pipeline from the concrete broker
// (Redis Streams, Kafka/Redpanda). Offsets, partitions, retries and
// reconnection all live behind them.

// Message is one inbound record as delivered by a MessageSource.
type Message struct {
	// ID is the broker-assigned identifier (stream entry ID or
	// "partition/offset"), used for logging and commit.
	ID string

	// Key is the record key, if the producer set one.
	Key string

	// Payload is the raw record body. Nil when the record carried none.
	Payload []byte

	// Topic the record was read from.
	Topic string

	// ack is transport-private commit state.
	ack any
}

// WithAck returns a copy of m carrying transport-private commit state.
func (m Message) WithAck(v any) Message {
	m.ack = v
	return m
}

// Ack returns the transport-private commit state attached by WithAck.
func (m Message) Ack() any { return m.ack }

// MessageSource yields inbound messages from a subscribed topic.
type MessageSource interface {
	// Next blocks until a message is available or ctx is done.
	// A non-nil error is a receive failure; callers may call Next again.
	Next(ctx context.Context) (Message, error)

	// Commit marks msg as processed for the consumer group.
	Commit(ctx context.Context, msg Message) error

	// Close releases underlying resources.
	Close() error
}

// MessageSink accepts (topic, key, payload) triples for delivery.
type MessageSink interface {
	// Send delivers one record and reports whether the broker accepted it.
	Send(ctx context.Context, topic, key string, payload []byte) error

	// Close flushes and releases underlying resources.
	Close() error
}
