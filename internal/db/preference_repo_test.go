package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"umbrella/internal/types"
)

// fakeDB is an in-memory key-value backend understanding the store's three
// statement shapes (select, upsert, delete). Error fields inject failures.
type fakeDB struct {
	data      map[string]string
	execErr   error
	queryErr  error
	commitErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{data: make(map[string]string)}
}

type fakeRow struct {
	value string
	err   error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.value
	return nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.queryErr != nil {
		return &fakeRow{err: f.queryErr}
	}
	key := args[0].(string)
	value, ok := f.data[key]
	if !ok {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return &fakeRow{value: value}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	switch len(arguments) {
	case 2:
		f.data[arguments[0].(string)] = arguments[1].(string)
	case 1:
		delete(f.data, arguments[0].(string))
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used by the preference store")
}

func (f *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: f}, nil
}

// fakeTx delegates writes to the backing fakeDB. The store only uses Exec,
// Commit, and Rollback inside a transaction.
type fakeTx struct {
	db         *fakeDB
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, arguments...)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.db.commitErr != nil {
		return t.db.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not used") }
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not used")
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { panic("not used") }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { panic("not used") }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not used")
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used")
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}
func (t *fakeTx) Conn() *pgx.Conn { panic("not used") }

func newTestStore(db *fakeDB) *PreferenceStore {
	return NewPreferenceStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoad_DefaultsWhenNothingPersisted(t *testing.T) {
	store := newTestStore(newFakeDB())

	pref := store.Load(context.Background())
	want := types.DefaultNotificationPreference()
	if pref != want {
		t.Errorf("pref = %+v, want %+v", pref, want)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	store := newTestStore(newFakeDB())
	ctx := context.Background()

	saved := types.NotificationPreference{Enabled: true, Hour: 21, Minute: 30}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	if got := store.Load(ctx); got != saved {
		t.Errorf("loaded %+v, want %+v", got, saved)
	}
}

func TestLoad_DefaultsOnReadFailure(t *testing.T) {
	db := newFakeDB()
	db.queryErr = errors.New("connection refused")
	store := newTestStore(db)

	pref := store.Load(context.Background())
	if pref != types.DefaultNotificationPreference() {
		t.Errorf("pref = %+v, want defaults on read failure", pref)
	}
}

func TestLoad_DefaultTimeOnUnparseableValue(t *testing.T) {
	db := newFakeDB()
	db.data[keyNotificationEnabled] = "true"
	db.data[keyNotificationTime] = "not json"
	store := newTestStore(db)

	pref := store.Load(context.Background())
	if !pref.Enabled {
		t.Error("enabled flag should still apply")
	}
	if pref.Hour != 8 || pref.Minute != 0 {
		t.Errorf("time = %d:%d, want default 8:00", pref.Hour, pref.Minute)
	}
}

func TestSave_WriteFailureSurfaces(t *testing.T) {
	db := newFakeDB()
	db.execErr = errors.New("disk full")
	store := newTestStore(db)

	err := store.Save(context.Background(), types.NotificationPreference{Enabled: true, Hour: 8})
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeStorageWrite {
		t.Fatalf("got %v, want storage_write_failed", err)
	}
}

func TestHandle_Lifecycle(t *testing.T) {
	store := newTestStore(newFakeDB())
	ctx := context.Background()

	handle, err := store.Handle(ctx)
	if err != nil || handle != "" {
		t.Fatalf("initial handle = (%q, %v), want empty", handle, err)
	}

	if err := store.SetHandle(ctx, "h1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if handle, _ = store.Handle(ctx); handle != "h1" {
		t.Errorf("handle = %q, want h1", handle)
	}

	// Overwrite, then clear.
	if err := store.SetHandle(ctx, "h2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if handle, _ = store.Handle(ctx); handle != "h2" {
		t.Errorf("handle = %q, want h2", handle)
	}

	if err := store.ClearHandle(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if handle, _ = store.Handle(ctx); handle != "" {
		t.Errorf("handle = %q, want empty after clear", handle)
	}

	// Clearing again is a no-op.
	if err := store.ClearHandle(ctx); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestTemperatureUnit_DefaultAndRoundTrip(t *testing.T) {
	store := newTestStore(newFakeDB())
	ctx := context.Background()

	if unit := store.TemperatureUnit(ctx); unit != types.UnitCelsius {
		t.Errorf("default unit = %q, want C", unit)
	}

	if err := store.SetTemperatureUnit(ctx, types.UnitFahrenheit); err != nil {
		t.Fatalf("set: %v", err)
	}
	if unit := store.TemperatureUnit(ctx); unit != types.UnitFahrenheit {
		t.Errorf("unit = %q, want F", unit)
	}
}

func TestTemperatureUnit_InvalidPersistedValueDefaultsToCelsius(t *testing.T) {
	db := newFakeDB()
	db.data[keyTemperatureUnit] = "K"
	store := newTestStore(db)

	if unit := store.TemperatureUnit(context.Background()); unit != types.UnitCelsius {
		t.Errorf("unit = %q, want C for invalid persisted value", unit)
	}
}
