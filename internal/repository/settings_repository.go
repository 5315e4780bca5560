package repository

import (
	"context"
	"database/sql"
)

// SettingsRepo reads and writes the settings key/value table that holds
// business tunables such as the hold lifetime.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo bound to the provided database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get returns the raw value of a setting.  A missing key yields ErrNotFound.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	if err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, key).Scan(&v); err != nil {
		return "", translate(err, "setting", key)
	}
	return v, nil
}

// Set stores a setting, replacing any existing value.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (name, value, updated_at) VALUES (?, ?, UTC_TIMESTAMP())
         ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = UTC_TIMESTAMP()`,
		key, value)
	return err
}

// SeedDefaults inserts the given values for keys that are not set yet.
func (r *SettingsRepo) SeedDefaults(ctx context.Context, defaults map[string]string) error {
	for k, v := range defaults {
		if _, err := r.db.ExecContext(ctx,
			`INSERT IGNORE INTO settings (name, value, updated_at) VALUES (?, ?, UTC_TIMESTAMP())`, k, v); err != nil {
			return err
		}
	}
	return nil
}
