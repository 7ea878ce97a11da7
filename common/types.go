package common

import (
	"time"

	"github.com/warpdl/warpsched/pkg/schedule"
)

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// StateResult is the response for scheduler.getState.
type StateResult struct {
	Level         string         `json:"level"`
	LevelValue    schedule.Level `json:"level_value"`
	Previous      string         `json:"previous"`
	Paused        bool           `json:"paused"`
	NextTick      *time.Time     `json:"next_tick,omitempty"`
	LastReconcile *time.Time     `json:"last_reconcile,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

// NewStateResult converts an engine status snapshot.
func NewStateResult(s schedule.Status, paused bool) *StateResult {
	r := &StateResult{
		Level:      s.Level.String(),
		LevelValue: s.Level,
		Previous:   s.Previous.String(),
		Paused:     paused,
		LastError:  s.LastError,
	}
	if !s.NextTick.IsZero() {
		t := s.NextTick
		r.NextTick = &t
	}
	if !s.LastReconcile.IsZero() {
		t := s.LastReconcile
		r.LastReconcile = &t
	}
	return r
}

// StateChangedParams is the payload of NotifyStateChanged.
type StateChangedParams struct {
	Level string `json:"level"`
}

// ApplyRulesParams is the input for scheduler.applyRules. With Reset the
// rules are compiled onto a fresh default table instead of the current one.
type ApplyRulesParams struct {
	Rules []schedule.Rule `json:"rules"`
	Reset bool            `json:"reset,omitempty"`
}

// HistoryParams is the input for scheduler.history.
type HistoryParams struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryEntry is one level transition.
type HistoryEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Trigger string    `json:"trigger"`
}

// HistoryResult is the response for scheduler.history.
type HistoryResult struct {
	Transitions []HistoryEntry `json:"transitions"`
}
