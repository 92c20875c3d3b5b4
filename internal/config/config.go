package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LedgerRPCURL         string
	LedgerRetryMax       int
	LedgerRetryBaseDelay time.Duration
	LedgerReadTimeout    time.Duration
	LedgerValueDecimals  int
	LedgerConfirmTimeout time.Duration
	LedgerPollInterval   time.Duration
	SignerPrivateKey     string
	FanoutLimit          int

	DatabaseURL string

	CoinGeckoURL      string
	CoinGeckoCoinID   string
	FiatCurrency      string
	CoinGeckoDelay    time.Duration
	CoinGeckoRetryMax int

	QuoteWorkerInterval    time.Duration
	SnapshotWorkerInterval time.Duration
	WatchHolders           []string

	HTTPPort         string
	AdminAPIKey      string
	MetricsNamespace string

	GoogleSheetsID        string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		LedgerRPCURL:         envOrDefault("LEDGER_RPC_URL", "https://testnet.hashio.io/api"),
		LedgerRetryMax:       envOrDefaultInt("LEDGER_RETRY_MAX", 3),
		LedgerRetryBaseDelay: envOrDefaultDuration("LEDGER_RETRY_BASE_DELAY", time.Second),
		LedgerReadTimeout:    envOrDefaultDuration("LEDGER_READ_TIMEOUT", 10*time.Second),
		LedgerValueDecimals:  envOrDefaultInt("LEDGER_VALUE_DECIMALS", 18),
		LedgerConfirmTimeout: envOrDefaultDuration("LEDGER_CONFIRM_TIMEOUT", 2*time.Minute),
		LedgerPollInterval:   envOrDefaultDuration("LEDGER_POLL_INTERVAL", 2*time.Second),
		SignerPrivateKey:     os.Getenv("SIGNER_PRIVATE_KEY"),
		FanoutLimit:          envOrDefaultInt("FANOUT_LIMIT", 8),

		DatabaseURL: envOrDefaultWarn("DATABASE_URL", ""),

		CoinGeckoURL:      envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoCoinID:   envOrDefault("COINGECKO_COIN_ID", "hedera-hashgraph"),
		FiatCurrency:      strings.ToLower(envOrDefault("FIAT_CURRENCY", "usd")),
		CoinGeckoDelay:    envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax: envOrDefaultInt("COINGECKO_RETRY_MAX", 5),

		QuoteWorkerInterval:    envOrDefaultDuration("QUOTE_WORKER_INTERVAL", time.Hour),
		SnapshotWorkerInterval: envOrDefaultDuration("SNAPSHOT_WORKER_INTERVAL", 24*time.Hour),
		WatchHolders:           envList("WATCH_HOLDERS"),

		HTTPPort:         envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "holdings"),

		GoogleSheetsID:        os.Getenv("GOOGLE_SHEETS_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
