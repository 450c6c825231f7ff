package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"TOKEN1,TOKEN2", []string{"TOKEN1", "TOKEN2"}},
		{" TOKEN1 , TOKEN2 ,", []string{"TOKEN1", "TOKEN2"}},
		{"TOKEN1,,TOKEN1,TOKEN3", []string{"TOKEN1", "TOKEN3"}},
		{"", []string{}},
		{" , ", []string{}},
	}
	for _, tt := range tests {
		got := ParseList(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"TRANSPORT", "BROKER_ADDR", "REDPANDA_BROKERS", "TRADE_TOPIC", "RSI_TOPIC",
		"CONSUMER_GROUP", "TRACKED_TOKENS", "SEND_TIMEOUT_MS", "METRICS_ADDR",
		"GATEWAY_ADDR", "SQLITE_PATH", "HISTORY_LIMIT", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.Transport != "redis" {
		t.Errorf("expected redis transport, got %s", cfg.Transport)
	}
	if !reflect.DeepEqual(cfg.Brokers, []string{"localhost:6379"}) {
		t.Errorf("unexpected brokers %v", cfg.Brokers)
	}
	if cfg.TradeTopic != "trade-data" || cfg.RSITopic != "rsi-data" {
		t.Errorf("unexpected topics %s / %s", cfg.TradeTopic, cfg.RSITopic)
	}
	if cfg.ConsumerGroup != "rsi-calculator" {
		t.Errorf("unexpected group %s", cfg.ConsumerGroup)
	}
	if len(cfg.TrackedTokens) != 5 || cfg.TrackedTokens[0] != "TOKEN1" {
		t.Errorf("unexpected tokens %v", cfg.TrackedTokens)
	}
	if cfg.SendTimeout != 5*time.Second {
		t.Errorf("expected 5s send timeout, got %s", cfg.SendTimeout)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.ConsumerName == "" {
		t.Error("expected a consumer name")
	}
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("TRANSPORT", "Kafka")
	t.Setenv("BROKER_ADDR", "")
	t.Setenv("REDPANDA_BROKERS", "a:9092, b:9092")

	cfg := Load()

	if cfg.Transport != "kafka" {
		t.Errorf("expected kafka, got %s", cfg.Transport)
	}
	if !reflect.DeepEqual(cfg.Brokers, []string{"a:9092", "b:9092"}) {
		t.Errorf("unexpected brokers %v", cfg.Brokers)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("SEND_TIMEOUT_MS", "soon")
	t.Setenv("HISTORY_LIMIT", "-3")

	cfg := Load()

	if cfg.SendTimeout != 5*time.Second {
		t.Errorf("expected fallback 5s, got %s", cfg.SendTimeout)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("expected fallback 50, got %d", cfg.HistoryLimit)
	}
}
