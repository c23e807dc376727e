package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseDSN   string
	JWTSecret     string
	KafkaBrokers  string
	ApprovalTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

func Load() *Config {
	loadEnv()

	cfg := &Config{
		Port:               getEnv("PORT", "9000"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-only-secret"),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		ApprovalTopic:      getEnv("KAFKA_APPROVAL_TOPIC", "order-approvals"),
		OutboxPollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getInt("OUTBOX_BATCH_SIZE", 20),
		OutboxMaxAttempts:  getInt("OUTBOX_MAX_ATTEMPTS", 5),
	}
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", generateDsn())
	return cfg
}

func loadEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	possiblePaths := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(cwd, "..", ".env"),
		filepath.Join(cwd, "..", "..", ".env"),
	}
	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf("Loaded environment variables from %s", envPath)
			return
		}
	}
}

func generateDsn() string {
	host := getEnv("DB_HOST", "localhost")
	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "postgres")
	dbname := getEnv("POSTGRES_DB", "backoffice")

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
