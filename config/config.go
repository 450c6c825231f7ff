package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTokens is the instrument allow-list used when TRACKED_TOKENS is unset.
const DefaultTokens = "TOKEN1,TOKEN2,TOKEN3,TOKEN4,TOKEN5"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Transport
	Transport     string // "redis" or "kafka"
	Brokers       []string
	RedisPassword string
	SendTimeout   time.Duration

	// Topics and consumer identity
	TradeTopic    string
	RSITopic      string
	ConsumerGroup string
	ConsumerName  string
	GatewayGroup  string

	// Instruments
	TrackedTokens []string

	// HTTP
	MetricsAddr string
	GatewayAddr string

	// History archive
	SQLitePath   string
	HistoryLimit int

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	transport := strings.ToLower(getEnv("TRANSPORT", "redis"))

	defaultBroker := "localhost:6379"
	if transport == "kafka" {
		defaultBroker = "localhost:19092"
	}
	brokers := getEnv("BROKER_ADDR", getEnv("REDPANDA_BROKERS", defaultBroker))

	return &Config{
		Transport:     transport,
		Brokers:       ParseList(brokers),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SendTimeout:   time.Duration(getEnvInt("SEND_TIMEOUT_MS", 5000)) * time.Millisecond,

		TradeTopic:    getEnv("TRADE_TOPIC", "trade-data"),
		RSITopic:      getEnv("RSI_TOPIC", "rsi-data"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "rsi-calculator"),
		ConsumerName:  getEnv("CONSUMER_NAME", defaultConsumerName()),
		GatewayGroup:  getEnv("GATEWAY_GROUP", "rsi-gateway"),

		TrackedTokens: ParseList(getEnv("TRACKED_TOKENS", DefaultTokens)),

		MetricsAddr: getEnv("METRICS_ADDR", ":9096"),
		GatewayAddr: getEnv("GATEWAY_ADDR", ":3001"),

		SQLitePath:   getEnv("SQLITE_PATH", "data/rsi_history.db"),
		HistoryLimit: getEnvInt("HISTORY_LIMIT", 50),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ParseList splits a comma-separated value, trimming whitespace and
// dropping empty and duplicate entries. Order of first appearance is kept.
func ParseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func defaultConsumerName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "worker-1"
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
