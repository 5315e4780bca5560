package config

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

type mapStore map[string]string

func (m mapStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("setting %s: %w", key, booking.ErrNoRecord)
	}
	return v, nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestSettingsCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewSettings(mapStore{SettingHoldTTL: "10"}, rdb, time.Minute, nil)

	mock.ExpectGet("settings:" + SettingHoldTTL).SetVal("15")

	n, err := s.GetInt(context.Background(), SettingHoldTTL)
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsReadThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewSettings(mapStore{SettingBaseFare: "42.50"}, rdb, time.Minute, nil)

	mock.ExpectGet("settings:" + SettingBaseFare).RedisNil()
	mock.ExpectSetEx("settings:"+SettingBaseFare, "42.50", time.Minute).SetVal("OK")

	d, err := s.GetDecimal(context.Background(), SettingBaseFare)
	require.NoError(t, err)
	assert.Equal(t, "42.5", d.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRedisErrorFallsBack(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewSettings(nil, rdb, time.Minute, map[string]string{SettingHoldTTL: "10"})

	mock.ExpectGet("settings:" + SettingHoldTTL).SetErr(errors.New("timeout"))

	n, err := s.GetInt(context.Background(), SettingHoldTTL)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsDefaultsAndMissing(t *testing.T) {
	s := NewSettings(mapStore{}, nil, 0, map[string]string{SettingHoldTTL: "7"})
	ctx := context.Background()

	n, err := s.GetInt(ctx, SettingHoldTTL)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = s.GetDecimal(ctx, SettingBaseFare)
	assert.ErrorIs(t, err, ErrSettingMissing)
}

func TestSettingsStoreFailureIsReturned(t *testing.T) {
	s := NewSettings(failingStore{}, nil, 0, map[string]string{SettingHoldTTL: "7"})
	_, err := s.GetInt(context.Background(), SettingHoldTTL)
	assert.ErrorContains(t, err, "connection refused")
}

func TestSettingsParseErrors(t *testing.T) {
	s := NewSettings(mapStore{SettingHoldTTL: "ten", SettingBaseFare: "abc"}, nil, 0, nil)
	ctx := context.Background()

	_, err := s.GetInt(ctx, SettingHoldTTL)
	assert.Error(t, err)
	_, err = s.GetDecimal(ctx, SettingBaseFare)
	assert.Error(t, err)
}

func TestSettingsInvalidate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewSettings(nil, rdb, time.Minute, nil)

	mock.ExpectDel("settings:" + SettingHoldTTL).SetVal(1)
	require.NoError(t, s.Invalidate(context.Background(), SettingHoldTTL))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRateLimitDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_WRITE_KEY_STRATEGY", "ip")

	read := LoadRateLimitConfig()
	assert.Equal(t, 1, read.Capacity)
	assert.Equal(t, "rl", read.Prefix)
	assert.GreaterOrEqual(t, read.TTL, 5*read.RefillInterval)

	write := LoadWriteRateLimitConfig()
	assert.Equal(t, 10, write.Capacity)
	assert.Equal(t, "ip", write.KeyStrategy)
}

func TestLoadMemoryStore(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_STORE", StoreMemory)
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("HOLD_TTL_MINUTES", "12")

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.PurgeInterval)
	assert.Equal(t, "12", cfg.SettingDefaults()[SettingHoldTTL])
	assert.Empty(t, cfg.DBHost)
}
