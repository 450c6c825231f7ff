// Package transport selects a broker implementation for the pipeline's
// source and sink ports.
package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rsi-engine/internal/breaker"
	"rsi-engine/internal/model"
	"rsi-engine/internal/transport/kafka"
	"rsi-engine/internal/transport/redis"
)

// Supported transport kinds.
const (
	KindRedis = "redis"
	KindKafka = "kafka"
)

// Source is a MessageSource that can also be probed for liveness.
type Source interface {
	model.MessageSource
	Ping(ctx context.Context) error
}

// Options describes one broker connection.
type Options struct {
	Kind     string
	Brokers  []string // redis uses the first entry
	Password string   // redis only

	Topic    string // inbound topic (source only)
	Group    string
	Consumer string // redis only

	SendTimeout time.Duration
	Breaker     *breaker.Breaker
}

func (o Options) redisAddr() (string, error) {
	if len(o.Brokers) == 0 || o.Brokers[0] == "" {
		return "", fmt.Errorf("transport: no broker address")
	}
	return o.Brokers[0], nil
}

// OpenSource connects a consumer-group source for o.Topic.
func OpenSource(ctx context.Context, o Options) (Source, error) {
	switch strings.ToLower(o.Kind) {
	case KindRedis, "":
		addr, err := o.redisAddr()
		if err != nil {
			return nil, err
		}
		src, err := redis.NewSource(ctx, redis.SourceConfig{
			Addr:     addr,
			Password: o.Password,
			Stream:   o.Topic,
			Group:    o.Group,
			Consumer: o.Consumer,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case KindKafka:
		src, err := kafka.NewSource(kafka.SourceConfig{
			Brokers: o.Brokers,
			Topic:   o.Topic,
			Group:   o.Group,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("transport: unknown kind %q", o.Kind)
	}
}

// OpenSink connects a sink. Topics are chosen per Send.
func OpenSink(ctx context.Context, o Options) (model.MessageSink, error) {
	switch strings.ToLower(o.Kind) {
	case KindRedis, "":
		addr, err := o.redisAddr()
		if err != nil {
			return nil, err
		}
		sink, err := redis.NewSink(ctx, redis.SinkConfig{
			Addr:        addr,
			Password:    o.Password,
			SendTimeout: o.SendTimeout,
			Breaker:     o.Breaker,
		})
		if err != nil {
			return nil, err
		}
		return sink, nil
	case KindKafka:
		sink, err := kafka.NewSink(kafka.SinkConfig{
			Brokers:     o.Brokers,
			SendTimeout: o.SendTimeout,
			Breaker:     o.Breaker,
		})
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("transport: unknown kind %q", o.Kind)
	}
}
