// Package schedule implements the bandwidth schedule engine used by warpsched.
//
// The engine owns a 7x24 policy table mapping (weekday, hour) to one of three
// levels: Normal, Slow and Stopped. On every hourly tick, and whenever the
// configuration changes, it evaluates the cell for the current wall-clock time
// and reconciles the attached Session against it: Normal restores the
// session's own limits, Slow applies the configured slow-mode limits and
// Stopped pauses the session. A change notification is emitted exactly once
// per level transition.
//
// The engine never polls. It is driven by a fire-once timer that re-arms
// itself after each tick, the first of which is aligned to the next
// wall-clock hour boundary.
package schedule
