// Package store persists the scheduler configuration and, when backed by
// SQLite, the history of level transitions.
package store

import "github.com/warpdl/warpsched/pkg/schedule"

// PluginName keys the configuration record, as a plugin config file or row.
const PluginName = "scheduler"

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = schedule.ErrConfigNotFound

var (
	_ schedule.Store    = (*FileStore)(nil)
	_ schedule.Store    = (*SQLiteStore)(nil)
	_ schedule.Recorder = (*SQLiteStore)(nil)
)
