package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Ticketing TicketingConfig
	Audit     AuditConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// zero keeps the pool defaults
	MaxConns         int32
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

type AuthConfig struct {
	JWTSecret string
}

type TicketingConfig struct {
	// QRSecret signs new payloads; QRPreviousSecrets are only accepted when decoding.
	QRSecret          string
	QRPreviousSecrets []string
	// check-in window is [start - CheckInLead, start + GracePeriod]
	CheckInLead         time.Duration
	GracePeriod         time.Duration
	ExpirySweepInterval time.Duration
}

type AuditConfig struct {
	// UseRedisStream switches the audit queue from the in-memory channel to Redis Streams.
	UseRedisStream bool
	ConsumerID     string
	BufferSize     int
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	AppConfig = &Config{
		Server:    GetServerConfig(),
		Database:  GetDatabaseConfig(),
		Redis:     GetRedisConfig(),
		Auth:      AuthConfig{JWTSecret: getEnv("JWT_SECRET", "")},
		Ticketing: GetTicketingConfig(),
		Audit:     GetAuditConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test postgres runs on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test redis runs on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Server:   ServerConfig{Port: "0", LogLevel: "debug"},
		Database: *testConfig,
		Redis:    testRedisConfig,
		Auth:     AuthConfig{JWTSecret: "test-secret"},
		Ticketing: TicketingConfig{
			QRSecret:            "test-qr-secret",
			CheckInLead:         2 * time.Hour,
			GracePeriod:         30 * time.Minute,
			ExpirySweepInterval: time.Minute,
		},
		Audit: AuditConfig{BufferSize: 100},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "0"), 10, 32)
	if err != nil {
		panic(err)
	}

	return DatabaseConfig{
		Host:             getEnv("DB_HOST", "localhost"),
		Port:             getEnv("DB_PORT", "5432"),
		User:             getEnv("DB_USER", "postgres"),
		Password:         getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "postgres"),
		SSLMode:          getEnv("DB_SSL_MODE", "disable"),
		MaxConns:         int32(maxConns),
		StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", "2s"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	poolSize, err := strconv.Atoi(getEnv("REDIS_POOL_SIZE", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		PoolSize: poolSize,
	}
}

func GetTicketingConfig() TicketingConfig {
	return TicketingConfig{
		QRSecret:            getEnv("QR_SECRET", ""),
		QRPreviousSecrets:   getEnvAsList("QR_PREVIOUS_SECRETS"),
		CheckInLead:         getEnvAsDuration("CHECK_IN_LEAD", "2h"),
		GracePeriod:         getEnvAsDuration("CHECK_IN_GRACE_PERIOD", "30m"),
		ExpirySweepInterval: getEnvAsDuration("EXPIRY_SWEEP_INTERVAL", "1m"),
	}
}

func GetAuditConfig() AuditConfig {
	size, err := strconv.Atoi(getEnv("AUDIT_BUFFER_SIZE", "1024"))
	if err != nil {
		panic(err)
	}

	return AuditConfig{
		UseRedisStream: getEnv("AUDIT_QUEUE", "redis") == "redis",
		ConsumerID:     getEnv("AUDIT_CONSUMER_ID", ""),
		BufferSize:     size,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		panic(err)
	}
	return d
}

func getEnvAsList(key string) []string {
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
