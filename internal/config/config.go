package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Ledger
	XRPLRPCURL    string
	XRPLFaucetURL string

	// Blocking submit behavior: one HTTP call timeout, then validation
	// polling until the attempt budget runs out.
	LedgerCallTimeout  time.Duration
	LedgerPollInterval time.Duration
	LedgerPollAttempts int

	// Persistence: SQLite file by default; a non-empty POSTGRES_DSN
	// switches to Postgres.
	DBPath      string
	PostgresDSN string

	// Redis (optional): milestone event pub/sub + rate limiting.
	RedisURL           string
	RateLimitPerMinute int

	// Server
	APIPort string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		XRPLRPCURL:    getEnv("XRPL_RPC_URL", "https://s.altnet.rippletest.net:51234"),
		XRPLFaucetURL: getEnv("XRPL_FAUCET_URL", "https://faucet.altnet.rippletest.net/accounts"),

		LedgerCallTimeout:  time.Duration(getEnvInt("LEDGER_CALL_TIMEOUT_SECONDS", 15)) * time.Second,
		LedgerPollInterval: time.Duration(getEnvInt("LEDGER_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		LedgerPollAttempts: getEnvInt("LEDGER_POLL_ATTEMPTS", 20),

		// Default lives under the service's install root.
		DBPath:      getEnv("DB_PATH", "data/escrow.db"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),

		APIPort: getEnv("API_PORT", "8000"),
	}
}

func (c *Config) UsePostgres() bool {
	return c.PostgresDSN != ""
}

func (c *Config) Validate(log *zap.Logger) {
	if c.XRPLFaucetURL != "" {
		log.Warn("wallet faucet endpoint enabled; disable XRPL_FAUCET_URL in production")
	}
	if c.RedisURL == "" {
		log.Info("REDIS_URL not set; rate limiting disabled, events stay in-process")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
