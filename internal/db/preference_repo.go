package db

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"umbrella/internal/types"
)

// Persisted keys. These mirror the original storage entries one-to-one.
const (
	keyNotificationEnabled = "notification_enabled"
	keyNotificationTime    = "notification_time"
	keyNotificationHandle  = "notification_id"
	keyTemperatureUnit     = "temperature_unit"
)

// storedTime is the serialized form of the reminder time-of-day.
type storedTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// TxBeginner is the subset of *pgxpool.Pool the store needs: plain queries
// plus the ability to open a transaction for the atomic two-key save.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PreferenceStore persists the notification preference, the outstanding
// reminder handle, and the display temperature unit.
//
// Read failures are never fatal: every getter falls back to its documented
// default and logs the underlying error. Write failures surface as
// storage_write_failed.
type PreferenceStore struct {
	db     TxBeginner
	logger *slog.Logger
}

// NewPreferenceStore creates a PreferenceStore backed by the given pool.
func NewPreferenceStore(db TxBeginner, logger *slog.Logger) *PreferenceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceStore{db: db, logger: logger}
}

// get reads a single key. Missing keys return ("", false, nil).
func (s *PreferenceStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM preferences WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.NewAppError(types.ErrCodeStorageRead, "failed to read preference", err)
	}
	return value, true, nil
}

// upsert writes a single key through the given executor (pool or tx).
func upsert(ctx context.Context, db DBTX, key, value string) error {
	_, err := db.Exec(ctx,
		`INSERT INTO preferences (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE
		   SET value = EXCLUDED.value,
		       updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, "failed to write preference", err)
	}
	return nil
}

// Load returns the persisted notification preference. When nothing is
// persisted, or the persisted value cannot be read or parsed, it returns
// the documented default {enabled: false, hour: 8, minute: 0}.
func (s *PreferenceStore) Load(ctx context.Context) types.NotificationPreference {
	pref := types.DefaultNotificationPreference()

	enabled, ok, err := s.get(ctx, keyNotificationEnabled)
	if err != nil {
		s.logger.WarnContext(ctx, "preference read failed, using defaults", "error", err)
		return pref
	}
	if ok {
		pref.Enabled = enabled == "true"
	}

	raw, ok, err := s.get(ctx, keyNotificationTime)
	if err != nil {
		s.logger.WarnContext(ctx, "preference read failed, using default time", "error", err)
		return pref
	}
	if ok {
		var t storedTime
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			s.logger.WarnContext(ctx, "persisted time is unparseable, using default time", "error", err)
			return pref
		}
		pref.Hour, pref.Minute = t.Hour, t.Minute
	}

	return pref
}

// Save persists the enabled flag and the time-of-day in one transaction,
// so the preference is atomic from the caller's perspective.
func (s *PreferenceStore) Save(ctx context.Context, pref types.NotificationPreference) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	enabled := "false"
	if pref.Enabled {
		enabled = "true"
	}
	if err := upsert(ctx, tx, keyNotificationEnabled, enabled); err != nil {
		return err
	}

	raw, err := json.Marshal(storedTime{Hour: pref.Hour, Minute: pref.Minute})
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, "failed to encode time", err)
	}
	if err := upsert(ctx, tx, keyNotificationTime, string(raw)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, "failed to commit preference", err)
	}
	return nil
}

// Handle returns the persisted reminder handle, or the empty string when
// none is outstanding.
func (s *PreferenceStore) Handle(ctx context.Context) (string, error) {
	value, _, err := s.get(ctx, keyNotificationHandle)
	return value, err
}

// SetHandle persists the reminder handle, overwriting any previous value.
func (s *PreferenceStore) SetHandle(ctx context.Context, handle string) error {
	return upsert(ctx, s.db, keyNotificationHandle, handle)
}

// ClearHandle removes the persisted reminder handle. Clearing a handle
// that does not exist is a no-op.
func (s *PreferenceStore) ClearHandle(ctx context.Context) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM preferences WHERE key = $1`, keyNotificationHandle,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeStorageWrite, "failed to clear handle", err)
	}
	return nil
}

// TemperatureUnit returns the persisted display unit, defaulting to Celsius
// when absent or invalid.
func (s *PreferenceStore) TemperatureUnit(ctx context.Context) types.TemperatureUnit {
	value, ok, err := s.get(ctx, keyTemperatureUnit)
	if err != nil {
		s.logger.WarnContext(ctx, "preference read failed, using default unit", "error", err)
		return types.UnitCelsius
	}
	if !ok {
		return types.UnitCelsius
	}
	unit := types.TemperatureUnit(value)
	if !unit.Valid() {
		return types.UnitCelsius
	}
	return unit
}

// SetTemperatureUnit persists the display unit.
func (s *PreferenceStore) SetTemperatureUnit(ctx context.Context, unit types.TemperatureUnit) error {
	return upsert(ctx, s.db, keyTemperatureUnit, string(unit))
}
