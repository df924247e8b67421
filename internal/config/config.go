package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	LedgerMode       string
	LedgerGatewayURL string
	LedgerChannel    string
	LedgerChaincode  string
	LedgerTimeout    time.Duration
}

const (
	// LedgerModeFabric anchors mutations to a Fabric gateway bridge.
	LedgerModeFabric = "fabric"
	// LedgerModeNull issues synthetic receipts without a live ledger.
	LedgerModeNull = "null"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "herbtrace"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "herbtrace"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		LedgerMode:       normalizeLedgerMode(getenv("LEDGER_MODE", LedgerModeNull)),
		LedgerGatewayURL: strings.TrimRight(getenv("LEDGER_GATEWAY_URL", ""), "/"),
		LedgerChannel:    getenv("LEDGER_CHANNEL", "herbchannel"),
		LedgerChaincode:  getenv("LEDGER_CHAINCODE", "herbtraceability"),
		LedgerTimeout:    getenvDuration("LEDGER_TIMEOUT", 10*time.Second),
	}

	return cfg
}

func normalizeLedgerMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case LedgerModeFabric:
		return LedgerModeFabric
	default:
		return LedgerModeNull
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
