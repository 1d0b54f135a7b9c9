// Package scheduler implements the reminder lifecycle: enable, disable,
// and cancel-all over the single outstanding daily registration.
//
// The lifecycle is a two-state machine on the persisted handle:
// Disabled (no handle) and Pending (handle persisted, trigger registered,
// content fixed at registration time). At most one handle may be
// outstanding at any time; every new registration cancels and discards the
// previous one first.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"umbrella/internal/decision"
	"umbrella/internal/types"
)

// PreferenceStore is the subset of the preference store the scheduler
// needs: the persisted handle and the saved preference for state reporting.
type PreferenceStore interface {
	Load(ctx context.Context) types.NotificationPreference
	Handle(ctx context.Context) (string, error)
	SetHandle(ctx context.Context, handle string) error
	ClearHandle(ctx context.Context) error
}

// HostScheduler is the host platform's daily-trigger contract.
type HostScheduler interface {
	PermissionGranted() bool
	Schedule(content types.ReminderContent, trigger types.DailyTrigger) (string, error)
	Cancel(handle string) error
	CancelAll() error
	NextFire(handle string) (time.Time, bool)
}

// LocationSource resolves the current coordinates.
type LocationSource interface {
	Resolve(ctx context.Context) (types.Coordinates, error)
}

// WeatherSource fetches the current observation.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) (types.WeatherObservation, error)
}

// ReminderScheduler manages the lifecycle of the single recurring
// reminder.
type ReminderScheduler struct {
	prefs    PreferenceStore
	host     HostScheduler
	location LocationSource
	weather  WeatherSource
	clock    types.Clock
	logger   *slog.Logger

	// mu serializes Enable/Disable/CancelAll. The cancel-then-create
	// replacement is a critical section: two rapid toggles must never
	// leave two registrations outstanding.
	mu sync.Mutex
}

// NewReminderScheduler creates a ReminderScheduler.
func NewReminderScheduler(
	prefs PreferenceStore,
	host HostScheduler,
	location LocationSource,
	weather WeatherSource,
	clock types.Clock,
	logger *slog.Logger,
) *ReminderScheduler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderScheduler{
		prefs:    prefs,
		host:     host,
		location: location,
		weather:  weather,
		clock:    clock,
		logger:   logger,
	}
}

// Enable registers the daily reminder at hour:minute and returns the new
// handle. Any previously outstanding registration is cancelled and its
// handle discarded first (idempotent when none exists).
//
// The reminder content is computed once, here: location and weather
// failures of every kind degrade to the safe "no umbrella" default so the
// reminder is always scheduled. The only error that prevents scheduling
// itself — and therefore surfaces — is a missing notification permission.
//
// The daily trigger always carries the requested hour:minute; when that
// moment has already passed today the first firing simply lands tomorrow.
func (s *ReminderScheduler) Enable(ctx context.Context, hour, minute int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.host.PermissionGranted() {
		return "", types.NewAppError(
			types.ErrCodePermissionNotification,
			"notification permission has not been granted",
			nil,
		)
	}

	// Cancel-before-create: drop any outstanding registration first.
	existing, err := s.prefs.Handle(ctx)
	if err != nil {
		// A read failure means we cannot know about an old handle; proceed
		// as if none exists rather than failing the enable.
		s.logger.WarnContext(ctx, "could not read outstanding handle", "error", err)
	}
	if existing != "" {
		if err := s.host.Cancel(existing); err != nil {
			s.logger.WarnContext(ctx, "failed to cancel outstanding registration",
				"handle", existing, "error", err)
		}
		if err := s.prefs.ClearHandle(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to clear outstanding handle", "error", err)
		}
	}

	// Today's forecast, fixed at registration time.
	obs := s.observationOrDefault(ctx)
	content := decision.ReminderContent(decision.Decide(obs))

	trigger := types.DailyTrigger{Hour: hour, Minute: minute}
	handle, err := s.host.Schedule(content, trigger)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalScheduler,
			"failed to register daily trigger",
			err,
		)
	}

	if err := s.prefs.SetHandle(ctx, handle); err != nil {
		// An unpersisted handle would escape the at-most-one invariant on
		// the next enable; roll the registration back.
		_ = s.host.Cancel(handle)
		return "", err
	}

	s.logger.InfoContext(ctx, "reminder enabled",
		"handle", handle,
		"hour", hour,
		"minute", minute,
		"first_fire_at", trigger.NextAfter(s.clock.Now()),
		"title", content.Title,
	)
	return handle, nil
}

// Disable cancels the outstanding registration and clears the persisted
// handle. With no outstanding handle it is a no-op: the host scheduler is
// not called.
func (s *ReminderScheduler) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.prefs.Handle(ctx)
	if err != nil {
		return err
	}
	if handle == "" {
		return nil
	}

	if err := s.host.Cancel(handle); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalScheduler,
			"failed to cancel daily trigger",
			err,
		)
	}
	if err := s.prefs.ClearHandle(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "reminder disabled", "handle", handle)
	return nil
}

// CancelAll unconditionally drops every registration the host scheduler is
// tracking and clears the persisted handle, regardless of prior state.
// Used for full teardown.
func (s *ReminderScheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.host.CancelAll(); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalScheduler,
			"failed to cancel all triggers",
			err,
		)
	}
	if err := s.prefs.ClearHandle(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "all reminders cancelled")
	return nil
}

// State reports the current reminder lifecycle for API consumers.
func (s *ReminderScheduler) State(ctx context.Context) types.ReminderState {
	pref := s.prefs.Load(ctx)
	state := types.ReminderState{
		Enabled: pref.Enabled,
		Hour:    pref.Hour,
		Minute:  pref.Minute,
	}

	handle, err := s.prefs.Handle(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "could not read outstanding handle", "error", err)
		return state
	}
	state.Handle = handle
	if handle != "" {
		if next, ok := s.host.NextFire(handle); ok {
			state.NextFireAt = &next
		}
	}
	return state
}

// observationOrDefault is the fallback combinator at the scheduling
// boundary: it returns the current observation, or the safe "no umbrella"
// default on ANY failure — denied location permission, missing API key,
// network error, provider error. None of these may prevent scheduling.
func (s *ReminderScheduler) observationOrDefault(ctx context.Context) types.WeatherObservation {
	coords, err := s.location.Resolve(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "location unavailable, using default reminder content", "error", err)
		return types.SafeDefaultObservation()
	}

	obs, err := s.weather.Fetch(ctx, coords.Lat, coords.Lon)
	if err != nil {
		s.logger.WarnContext(ctx, "weather unavailable, using default reminder content", "error", err)
		return types.SafeDefaultObservation()
	}
	return obs
}
