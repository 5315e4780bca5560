package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/booking"
)

// Setting keys understood by the booking engine.
const (
	SettingHoldTTL  = booking.SettingHoldTTL
	SettingBaseFare = booking.SettingBaseFare
)

// ErrSettingMissing is returned when a key is neither stored nor defaulted.
var ErrSettingMissing = errors.New("setting is not configured")

// SettingsStore is the durable source of settings, usually
// repository.SettingsRepo.  Get must wrap booking.ErrNoRecord for a
// missing key.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// Settings implements booking.ConfigProvider.  Lookups go to Redis first,
// then to the store (caching what they find), then to the defaults.  A
// nil Redis client or nil store skips that layer; Redis errors are logged
// and treated as a miss.
type Settings struct {
	store    SettingsStore
	rdb      *redis.Client
	ttl      time.Duration
	prefix   string
	defaults map[string]string
	log      *log.Logger
}

var _ booking.ConfigProvider = (*Settings)(nil)

// NewSettings builds a Settings provider.
func NewSettings(store SettingsStore, rdb *redis.Client, ttl time.Duration, defaults map[string]string) *Settings {
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Settings{store: store, rdb: rdb, ttl: ttl, prefix: "settings:", defaults: d, log: log.New("settings")}
}

// GetString returns the raw value of key.
func (s *Settings) GetString(ctx context.Context, key string) (string, error) {
	ck := s.prefix + key
	if s.rdb != nil {
		v, err := s.rdb.Get(ctx, ck).Result()
		switch {
		case err == nil:
			return v, nil
		case !errors.Is(err, redis.Nil):
			s.log.Warnf("redis get %s: %v", ck, err)
		}
	}
	if s.store != nil {
		v, err := s.store.Get(ctx, key)
		switch {
		case err == nil:
			if s.rdb != nil {
				if err := s.rdb.SetEx(ctx, ck, v, s.ttl).Err(); err != nil {
					s.log.Warnf("redis set %s: %v", ck, err)
				}
			}
			return v, nil
		case !errors.Is(err, booking.ErrNoRecord):
			return "", fmt.Errorf("load setting %s: %w", key, err)
		}
	}
	if v, ok := s.defaults[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", key, ErrSettingMissing)
}

// GetInt returns key parsed as a base 10 integer.
func (s *Settings) GetInt(ctx context.Context, key string) (int, error) {
	v, err := s.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("setting %s: %w", key, err)
	}
	return n, nil
}

// GetDecimal returns key parsed as a decimal number.
func (s *Settings) GetDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	v, err := s.GetString(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s: %w", key, err)
	}
	return d, nil
}

// Invalidate drops the cached copy of key so the next lookup reads the
// store.
func (s *Settings) Invalidate(ctx context.Context, key string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, s.prefix+key).Err()
}
