package schedule

import "errors"

var (
	// ErrConfigShape is returned when a policy table is not 7x24 or holds a
	// level outside {0, 1, 2}.
	ErrConfigShape = errors.New("schedule: malformed policy table")

	// ErrInvalidLimit is returned for slow-mode limits that are NaN or infinite.
	ErrInvalidLimit = errors.New("schedule: invalid limit")

	// ErrSessionMutation wraps a failure reported by the Session while a
	// level was being applied.
	ErrSessionMutation = errors.New("schedule: session rejected update")

	// ErrEngineClosed is returned by operations attempted after Shutdown.
	ErrEngineClosed = errors.New("schedule: engine is shut down")

	// ErrInvalidRule is returned when a cron rule cannot be compiled.
	ErrInvalidRule = errors.New("schedule: invalid rule")

	// ErrConfigNotFound is returned by a Store that holds no configuration yet.
	ErrConfigNotFound = errors.New("schedule: no stored configuration")
)
