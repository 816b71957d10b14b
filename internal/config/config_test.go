package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lodge-booking/internal/config"
	"github.com/iliyamo/lodge-booking/internal/fixture"
)

func setBase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_MemoryDriver(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("HOLD_PURGE_INTERVAL", "30s")
	t.Setenv("RESEED_PRICES", "yes")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.HoldPurgeInterval)
	assert.True(t, cfg.ReseedPrices)
	assert.Equal(t, "config/prices.yaml", cfg.PriceConfigPath)
	assert.Empty(t, cfg.DBHost)
}

func TestLoad_MySQLRequiresDatabase(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_NAME", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestLoad_ReportsAllMissing(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	_, err := config.Load()
	require.Error(t, err)
	for _, key := range []string{"APP_ENV", "APP_PORT", "JWT_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := config.Load()
	assert.ErrorContains(t, err, "sqlite")
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	setBase(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HOLD_PURGE_INTERVAL", "soon")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.HoldPurgeInterval)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := config.LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	c := config.LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, config.LoadDotenv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LODGE_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("LODGE_TEST_DOTENV", "")
	os.Unsetenv("LODGE_TEST_DOTENV")
	require.NoError(t, config.LoadDotenv(path))
	assert.Equal(t, "from-file", os.Getenv("LODGE_TEST_DOTENV"))
}

func TestLoadPrices_SampleFile(t *testing.T) {
	cfg, err := config.LoadPrices(filepath.Join("..", "..", "config", "prices.yaml"))
	require.NoError(t, err)
	assert.Equal(t, fixture.Prices(), cfg)
}

func TestLoadPrices_ExpandsEnv(t *testing.T) {
	t.Setenv("LODGE_BULK_BASE", "123400")
	path := filepath.Join(t.TempDir(), "prices.yaml")
	data := `
rooms:
  subsidized:
    small: {empty_room_cents: 1, adult_cents: 1, child_cents: 1}
    large: {empty_room_cents: 1, adult_cents: 1, child_cents: 1}
  external:
    small: {empty_room_cents: 2, adult_cents: 2, child_cents: 2}
    large: {empty_room_cents: 2, adult_cents: 2, child_cents: 2}
bulk:
  base_cents: ${LODGE_BULK_BASE}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	cfg, err := config.LoadPrices(path)
	require.NoError(t, err)
	assert.Equal(t, int64(123400), cfg.Bulk.BaseCents)
}

func TestLoadPrices_MissingRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rooms:\n  external:\n    small: {empty_room_cents: 1}\n"), 0o600))
	_, err := config.LoadPrices(path)
	assert.ErrorContains(t, err, "subsidized")
}

func TestLoadRooms(t *testing.T) {
	rooms, err := config.LoadRooms(filepath.Join("..", "..", "config", "rooms.yaml"))
	require.NoError(t, err)
	assert.Equal(t, fixture.Rooms(), rooms)

	path := filepath.Join(t.TempDir(), "rooms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rooms:\n  - {id: a, tier: huge, bed_count: 1}\n"), 0o600))
	_, err = config.LoadRooms(path)
	assert.ErrorContains(t, err, "huge")

	require.NoError(t, os.WriteFile(path, []byte("rooms:\n  - {id: a, tier: small, bed_count: 1}\n  - {id: a, tier: small, bed_count: 1}\n"), 0o600))
	_, err = config.LoadRooms(path)
	assert.ErrorContains(t, err, "duplicate")

	_, err = config.LoadRooms(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TLS", "")
	opt := config.RedisOptions()
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, 3, opt.DB)
	assert.Nil(t, opt.TLSConfig)

	t.Setenv("REDIS_HOST", "h")
	t.Setenv("REDIS_PORT", "1")
	t.Setenv("REDIS_TLS", "true")
	opt = config.RedisOptions()
	assert.Equal(t, "h:1", opt.Addr)
	assert.NotNil(t, opt.TLSConfig)
}
