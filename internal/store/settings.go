package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetDurationSetting reads a setting stored as whole seconds.
func (s *Store) GetDurationSetting(ctx context.Context, key string) (time.Duration, error) {
	v, err := s.GetSetting(ctx, key)
	if err != nil {
		return 0, err
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("setting %q: %w", key, err)
	}
	return time.Duration(secs) * time.Second, nil
}

// SetDurationSetting stores d as whole seconds.
func (s *Store) SetDurationSetting(ctx context.Context, key string, d time.Duration) error {
	return s.SetSetting(ctx, key, strconv.Itoa(int(d/time.Second)))
}
