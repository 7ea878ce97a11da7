// Package session provides an in-process transfer session that the schedule
// engine can drive. It keeps the baseline limits configured by the operator,
// the limits currently in force and the paused state.
package session

import (
	"errors"
	"sync"

	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/warpdl/warpsched/pkg/schedule"
)

var ErrSessionClosed = errors.New("session: closed")

// Applied is the set of limits currently in force, in bytes per second.
// schedule.Unlimited (-1) means no limit.
type Applied struct {
	Download int64 `json:"download_bps"`
	Upload   int64 `json:"upload_bps"`
	Active   int   `json:"active_limit"`
}

// Session is safe for concurrent use.
type Session struct {
	log      logger.Logger
	baseline schedule.Limits

	mu      sync.Mutex
	applied Applied
	paused  bool
	closed  bool
}

var _ schedule.Session = (*Session)(nil)

// New creates a running session with baseline applied. Baseline rates are
// in KiB/s like the schedule configuration.
func New(baseline schedule.Limits, l logger.Logger) *Session {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Session{log: l, baseline: baseline, applied: baselineApplied(baseline)}
}

func baselineApplied(b schedule.Limits) Applied {
	return Applied{
		Download: schedule.BytesPerSecond(b.Download),
		Upload:   schedule.BytesPerSecond(b.Upload),
		Active:   b.Active,
	}
}

// BaselineLimits returns the operator-configured limits.
func (s *Session) BaselineLimits() schedule.Limits {
	return s.baseline
}

func (s *Session) SetRateLimits(download, upload int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.applied.Download = normalize(download)
	s.applied.Upload = normalize(upload)
	s.log.Debug("Rate limits set: down=%d B/s up=%d B/s", s.applied.Download, s.applied.Upload)
	return nil
}

func (s *Session) SetActiveLimit(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if n < 0 {
		n = schedule.Unlimited
	}
	s.applied.Active = n
	s.log.Debug("Active limit set: %d", n)
	return nil
}

// RestoreDefaultLimits re-applies the baseline limits.
func (s *Session) RestoreDefaultLimits() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.applied = baselineApplied(s.baseline)
	s.log.Debug("Baseline limits restored")
	return nil
}

// Pause stops transfers until Resume.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.paused {
		s.paused = true
		s.log.Info("Session paused")
	}
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.paused {
		s.paused = false
		s.log.Info("Session resumed")
	}
	return nil
}

// Paused reports whether the session is paused.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Limits returns the limits currently in force.
func (s *Session) Limits() Applied {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Close makes every mutator fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func normalize(bps int64) int64 {
	if bps < 0 {
		return schedule.Unlimited
	}
	return bps
}
