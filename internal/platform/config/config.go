package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration assembled from the
// environment so main stays lean.
type Server struct {
	Addr           string
	JWTSigningKey  string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig configures the live-push broker connection. An empty URL
// disables Redis and the in-process broker is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the workflow event stream. Empty brokers disable
// event publication.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("HAVENLINK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "havenlink"
	}

	topic := os.Getenv("KAFKA_EVENTS_TOPIC")
	if topic == "" {
		topic = "havenlink.workflow.events"
	}

	return Server{
		Addr:           addr,
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      issuer,
		AccessTokenTTL: durationEnv("ACCESS_TOKEN_TTL", time.Hour),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitEnv("KAFKA_BROKERS"),
			Topic:   topic,
		},
	}
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func splitEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
