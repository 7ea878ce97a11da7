package schedule

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warpdl/warpsched/pkg/logger"
)

// EventName is the name under which level changes are emitted to the EventSink.
const EventName = "SchedulerEvent"

// TickInterval is the delay between two scheduled reconciles once the timer
// is aligned to the hour.
const TickInterval = time.Hour

// Reconcile triggers, recorded with every transition.
const (
	TriggerStartup = "startup"
	TriggerTimer   = "timer"
	TriggerConfig  = "config"
	TriggerManual  = "manual"
)

// Session is the transfer session whose limits and run state the engine
// controls. Rates are in bytes per second; Unlimited (-1) lifts a limit.
type Session interface {
	// BaselineLimits returns the globally configured limits, used to seed
	// the slow-mode limits on first start.
	BaselineLimits() Limits
	SetRateLimits(download, upload int64) error
	SetActiveLimit(n int) error
	// RestoreDefaultLimits re-applies the globally configured limits.
	RestoreDefaultLimits() error
	Pause() error
	Resume() error
}

// EventSink receives change notifications. Emit must not block for long;
// the engine calls it while holding its lock.
type EventSink interface {
	Emit(event string, payload any)
}

// Recorder receives a full description of every transition. It is used for
// history and metrics, which need more than the level label.
type Recorder interface {
	Record(t Transition)
}

// MultiRecorder forwards every transition to each non-nil Recorder in order.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(t Transition) {
	for _, r := range m {
		if r != nil {
			r.Record(t)
		}
	}
}

// Transition describes a level change.
type Transition struct {
	At      time.Time
	From    Level
	To      Level
	Trigger string
}

// Timer is a pending scheduled call. Stop cancels it and reports whether it
// was still pending; stopping a fired or stopped timer is a no-op.
type Timer interface {
	Stop() bool
}

// Timers schedules fn to run once after d.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Store persists the scheduler configuration as a single record.
type Store interface {
	// Load returns ErrConfigNotFound when nothing has been saved yet.
	Load() (*Config, error)
	Save(c *Config) error
}

// Deps holds the collaborators of an Engine.
type Deps struct {
	Session Session
	Store   Store

	// Sink receives the level label on every change. Optional.
	Sink EventSink
	// Recorder receives every transition. Optional.
	Recorder Recorder
	// Timers defaults to time.AfterFunc.
	Timers Timers
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Logger defaults to a NopLogger.
	Logger logger.Logger
}

// Status is a snapshot of the engine for status displays.
type Status struct {
	Level         Level
	Previous      Level
	NextTick      time.Time
	LastReconcile time.Time
	LastError     string
}

// Engine evaluates the policy table against the clock and reconciles the
// session. All exported methods are safe for concurrent use; they are
// serialised by a single lock, so a reconcile and a config update never
// interleave.
type Engine struct {
	session  Session
	store    Store
	sink     EventSink
	recorder Recorder
	timers   Timers
	now      func() time.Time
	log      logger.Logger

	mu            sync.Mutex
	cfg           *Config
	state         Level
	previous      Level
	timer         Timer
	nextTick      time.Time
	lastReconcile time.Time
	lastErr       error
	started       bool
	closed        bool
}

// NewEngine loads the stored configuration, falling back to defaults seeded
// from the session baseline, and performs the initial evaluation.
// No notification is emitted for the initial level.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Session == nil {
		return nil, errors.New("schedule: nil session")
	}
	if deps.Store == nil {
		return nil, errors.New("schedule: nil store")
	}
	e := &Engine{
		session:  deps.Session,
		store:    deps.Store,
		sink:     deps.Sink,
		recorder: deps.Recorder,
		timers:   deps.Timers,
		now:      deps.Clock,
		log:      deps.Logger,
	}
	if e.timers == nil {
		e.timers = runtimeTimers{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logger.NewNopLogger()
	}

	cfg, err := e.store.Load()
	switch {
	case errors.Is(err, ErrConfigNotFound):
		cfg = DefaultConfig(e.session.BaselineLimits())
		if err := e.store.Save(cfg); err != nil {
			return nil, fmt.Errorf("save default config: %w", err)
		}
		e.log.Info("Created default scheduler configuration")
	case err != nil:
		return nil, fmt.Errorf("load config: %w", err)
	default:
		if verr := cfg.Validate(); verr != nil {
			e.log.Warning("Stored scheduler configuration is invalid, using defaults: %v", verr)
			cfg = DefaultConfig(e.session.BaselineLimits())
		}
	}
	e.cfg = cfg
	e.state = e.evaluate()
	e.previous = e.state
	return e, nil
}

// Start applies the current level to the session and arms the first timer
// for the next wall-clock hour boundary. Subsequent ticks follow every
// TickInterval. Start only arms the timer once.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	err := e.reconcile(false, TriggerStartup)
	if !e.started {
		e.started = true
		e.arm(UntilNextHour(e.now()))
	}
	return err
}

// Evaluate returns the level of the table slot for the current time.
func (e *Engine) Evaluate() Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluate()
}

func (e *Engine) evaluate() Level {
	now := e.now()
	return e.cfg.PolicyTable.At(now.Weekday(), now.Hour())
}

// Reconcile evaluates the table and applies the resulting level to the
// session. A notification is emitted only if the level differs from the one
// last applied. When applyTimer is true the next reconcile is scheduled
// TickInterval later.
//
// If the session rejects an update the level is not recorded as applied and
// no notification is sent; the error wraps ErrSessionMutation.
func (e *Engine) Reconcile(applyTimer bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	return e.reconcile(applyTimer, TriggerManual)
}

func (e *Engine) reconcile(applyTimer bool, trigger string) error {
	level := e.evaluate()
	err := e.apply(level)
	e.lastReconcile = e.now()
	e.lastErr = err
	if err != nil {
		e.log.Error("Failed to apply %s level: %v", level, err)
	} else if level != e.state {
		t := Transition{At: e.lastReconcile, From: e.state, To: level, Trigger: trigger}
		e.previous, e.state = e.state, level
		e.log.Info("Scheduler state changed from %s to %s (%s)", t.From, t.To, trigger)
		if e.sink != nil {
			e.sink.Emit(EventName, level.String())
		}
		if e.recorder != nil {
			e.recorder.Record(t)
		}
	}
	if applyTimer {
		e.arm(TickInterval)
	}
	return err
}

func (e *Engine) apply(level Level) error {
	var err error
	switch level {
	case Normal:
		if err = e.session.RestoreDefaultLimits(); err == nil {
			err = e.session.Resume()
		}
	case Slow:
		err = e.session.SetRateLimits(
			BytesPerSecond(e.cfg.SlowDownloadLimit),
			BytesPerSecond(e.cfg.SlowUploadLimit),
		)
		if err == nil {
			err = e.session.SetActiveLimit(e.cfg.SlowActiveLimit)
		}
		if err == nil {
			err = e.session.Resume()
		}
	case Stopped:
		err = e.session.Pause()
	default:
		return fmt.Errorf("%w: level %d", ErrConfigShape, int(level))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionMutation, err)
	}
	return nil
}

// arm replaces any pending timer with one firing after d.
func (e *Engine) arm(d time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = e.timers.AfterFunc(d, e.tick)
	e.nextTick = e.now().Add(d)
	e.log.Debug("Next schedule evaluation in %s", d)
}

func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.timer = nil
	_ = e.reconcile(true, TriggerTimer)
}

// ApplyConfig merges u into the current configuration, validates and
// persists the result, then reconciles immediately so the change takes
// effect without waiting for the next tick.
//
// Validation and persistence errors are returned and leave the previous
// configuration and state untouched. A session error during the follow-up
// reconcile is logged but does not fail the update: the configuration has
// been accepted and the next tick retries.
func (e *Engine) ApplyConfig(u *ConfigUpdate) (*Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	return e.commit(e.cfg.Merge(u))
}

// ApplyRules compiles rules onto the current table, or onto DefaultTable
// when reset is set, and applies the result like ApplyConfig. The table is
// read and replaced under one lock.
func (e *Engine) ApplyRules(rules []Rule, reset bool) (*Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	base := e.cfg.PolicyTable
	if reset {
		base = DefaultTable()
	}
	table, err := CompileRules(base, rules)
	if err != nil {
		return nil, err
	}
	return e.commit(e.cfg.Merge(&ConfigUpdate{PolicyTable: table}))
}

// commit validates, persists and reconciles next. Callers hold e.mu.
func (e *Engine) commit(next *Config) (*Config, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.Save(next); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}
	e.cfg = next
	_ = e.reconcile(false, TriggerConfig)
	return next.Clone(), nil
}

// GetConfig returns a copy of the current configuration.
func (e *Engine) GetConfig() *Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// CurrentLevel returns the level last applied to the session.
func (e *Engine) CurrentLevel() Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		Level:         e.state,
		Previous:      e.previous,
		NextTick:      e.nextTick,
		LastReconcile: e.lastReconcile,
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// Shutdown cancels the pending reconcile, if any. It is safe to call more
// than once and before Start.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.nextTick = time.Time{}
}

// UntilNextHour returns the time remaining from t to the next hour boundary
// of t's wall clock. At an exact boundary it returns a full hour. The result
// is always in (0, 1h], across DST transitions too.
func UntilNextHour(t time.Time) time.Duration {
	into := time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	return time.Hour - into
}

type runtimeTimers struct{}

func (runtimeTimers) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
