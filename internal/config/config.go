// Package config loads application configuration from environment
// variables, an optional .env file and the YAML seed files for rooms and
// prices.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env               string        // APP_ENV, e.g. "dev" or "prod"
	Port              string        // APP_PORT
	StoreDriver       string        // STORE_DRIVER: mysql or memory
	DBUser            string        // DB_USER
	DBPass            string        // DB_PASS (optional)
	DBHost            string        // DB_HOST
	DBPort            string        // DB_PORT
	DBName            string        // DB_NAME
	JWTSecret         string        // JWT_SECRET, verifies admin tokens
	AdminTokenTTL     time.Duration // ADMIN_TOKEN_TTL, lifetime of minted admin tokens
	HoldPurgeInterval time.Duration // HOLD_PURGE_INTERVAL
	PriceConfigPath   string        // PRICE_CONFIG_PATH
	RoomsConfigPath   string        // ROOMS_CONFIG_PATH
	ReseedPrices      bool          // RESEED_PRICES, overwrite the stored price table on start
	RabbitMQURL       string        // RABBITMQ_URL (optional, events are dropped when empty)
	ShutdownTimeout   time.Duration // SHUTDOWN_TIMEOUT
}

// LoadDotenv reads path into the environment when it exists.  Variables
// already set win over the file.
func LoadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads configuration values from the environment.  Every missing
// required variable is reported in one error.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:               l.must("APP_ENV"),
		Port:              l.must("APP_PORT"),
		StoreDriver:       strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		DBPass:            os.Getenv("DB_PASS"),
		JWTSecret:         l.must("JWT_SECRET"),
		AdminTokenTTL:     AdminTokenTTL(),
		HoldPurgeInterval: envDur("HOLD_PURGE_INTERVAL", time.Minute),
		PriceConfigPath:   envStr("PRICE_CONFIG_PATH", "config/prices.yaml"),
		RoomsConfigPath:   envStr("ROOMS_CONFIG_PATH", "config/rooms.yaml"),
		ReseedPrices:      envBool("RESEED_PRICES", false),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		ShutdownTimeout:   envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case DriverMemory:
	default:
		l.errs = append(l.errs, fmt.Sprintf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
	if cfg.HoldPurgeInterval <= 0 {
		cfg.HoldPurgeInterval = time.Minute
	}
	if len(l.errs) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(l.errs, "; "))
	}
	return cfg, nil
}

// AdminTokenTTL returns ADMIN_TOKEN_TTL, 12h when unset.
func AdminTokenTTL() time.Duration {
	return envDur("ADMIN_TOKEN_TTL", 12*time.Hour)
}

type loader struct {
	errs []string
}

// must retrieves a required environment variable and records it as
// missing when unset or empty.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, "missing required env var: "+key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
