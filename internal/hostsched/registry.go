// Package hostsched implements the host notification scheduler contract:
// recurring daily triggers with opaque handles, replace/cancel semantics,
// and a permission gate. It is the in-process analog of the OS-level
// scheduler the original design delegates to.
//
// One goroutine per registration waits for the next hour:minute occurrence
// and hands the registration's fixed content to the delivery Sink, then
// re-arms for the following day. Content is never recomputed at fire time.
//
// Registrations live in memory only; callers that need them to survive a
// restart re-register from persisted state at startup.
package hostsched

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"umbrella/internal/types"
)

// deliverTimeout bounds a single delivery attempt when a trigger fires.
const deliverTimeout = 30 * time.Second

// ErrStopped is returned by Schedule after the registry has been stopped.
var ErrStopped = errors.New("hostsched: registry is stopped")

// Sink receives the content of a fired trigger. Implementations publish to
// a queue or deliver directly; the registry does not retry on sink failure.
type Sink interface {
	Deliver(ctx context.Context, msg types.ReminderMessage) error
}

// registration is one active recurring daily trigger.
type registration struct {
	handle  string
	content types.ReminderContent
	trigger types.DailyTrigger
	cancel  chan struct{}
}

// Registry tracks active registrations and fires them on schedule.
type Registry struct {
	sink    Sink
	clock   types.Clock
	logger  *slog.Logger
	consent bool

	mu      sync.Mutex
	regs    map[string]*registration
	stopped bool

	baseCtx  context.Context
	baseStop context.CancelFunc
	wg       sync.WaitGroup
}

// NewRegistry creates a Registry. consent models the notification
// permission: when false, PermissionGranted reports false and callers must
// not schedule.
func NewRegistry(sink Sink, consent bool, clock types.Clock, logger *slog.Logger) *Registry {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Registry{
		sink:     sink,
		clock:    clock,
		logger:   logger,
		consent:  consent,
		regs:     make(map[string]*registration),
		baseCtx:  ctx,
		baseStop: stop,
	}
}

// PermissionGranted reports whether notification permission has been
// granted. The query half of the host permission contract; the request
// half is a deployment concern (the consent flag).
func (r *Registry) PermissionGranted() bool {
	return r.consent
}

// Schedule registers a recurring daily trigger carrying the fixed content
// and returns its opaque handle. The first firing is at the next
// hour:minute occurrence strictly after now; subsequent firings repeat
// daily until the handle is cancelled.
func (r *Registry) Schedule(content types.ReminderContent, trigger types.DailyTrigger) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return "", ErrStopped
	}

	reg := &registration{
		handle:  uuid.New().String(),
		content: content,
		trigger: trigger,
		cancel:  make(chan struct{}),
	}
	r.regs[reg.handle] = reg

	r.wg.Add(1)
	go r.run(reg)

	r.logger.Info("daily trigger registered",
		"handle", reg.handle,
		"hour", trigger.Hour,
		"minute", trigger.Minute,
	)
	return reg.handle, nil
}

// Cancel removes a registration. Cancelling an unknown handle is a no-op,
// so replace-on-reschedule is idempotent.
func (r *Registry) Cancel(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[handle]
	if !ok {
		return nil
	}
	delete(r.regs, handle)
	close(reg.cancel)
	r.logger.Info("daily trigger cancelled", "handle", handle)
	return nil
}

// CancelAll drops every registration the registry is tracking.
func (r *Registry) CancelAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for handle, reg := range r.regs {
		delete(r.regs, handle)
		close(reg.cancel)
	}
	r.logger.Info("all daily triggers cancelled")
	return nil
}

// NextFire returns the next firing moment for a handle, or false when the
// handle is not registered.
func (r *Registry) NextFire(handle string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[handle]
	if !ok {
		return time.Time{}, false
	}
	return reg.trigger.NextAfter(r.clock.Now()), true
}

// Stop cancels all registrations and waits for firing goroutines to exit.
func (r *Registry) Stop() {
	r.mu.Lock()
	r.stopped = true
	for handle, reg := range r.regs {
		delete(r.regs, handle)
		close(reg.cancel)
	}
	r.mu.Unlock()

	r.baseStop()
	r.wg.Wait()
}

// run is the per-registration firing loop.
func (r *Registry) run(reg *registration) {
	defer r.wg.Done()
	for {
		next := reg.trigger.NextAfter(r.clock.Now())
		timer := time.NewTimer(next.Sub(r.clock.Now()))

		select {
		case <-timer.C:
			r.fire(reg)
		case <-reg.cancel:
			timer.Stop()
			return
		case <-r.baseCtx.Done():
			timer.Stop()
			return
		}
	}
}

// fire hands the registration's fixed content to the sink.
func (r *Registry) fire(reg *registration) {
	ctx, cancel := context.WithTimeout(r.baseCtx, deliverTimeout)
	defer cancel()

	msg := types.ReminderMessage{
		MessageID: uuid.New().String(),
		Handle:    reg.handle,
		Content:   reg.content,
		FiredAt:   r.clock.Now(),
	}
	if err := r.sink.Deliver(ctx, msg); err != nil {
		// The trigger re-arms for tomorrow regardless; a missed firing is
		// not retried within the day.
		r.logger.Error("reminder delivery failed",
			"handle", reg.handle,
			"error", err,
		)
		return
	}
	r.logger.Info("reminder fired",
		"handle", reg.handle,
		"title", reg.content.Title,
	)
}
