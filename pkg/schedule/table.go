package schedule

import (
	"fmt"
	"time"
)

const (
	// Days is the number of weekday rows in a PolicyTable.
	Days = 7
	// Hours is the number of hour columns in each row.
	Hours = 24
)

// PolicyTable maps a weekday row (time.Weekday, Sunday=0) and an hour
// column (0-23) to a Level.
//
// It is a slice rather than a fixed array so that a malformed table received
// from a client or read from disk can be represented and rejected by
// Validate instead of failing to decode.
type PolicyTable [][]Level

// NewTable returns a well-formed table with every slot set to l.
func NewTable(l Level) PolicyTable {
	t := make(PolicyTable, Days)
	for d := range t {
		row := make([]Level, Hours)
		for h := range row {
			row[h] = l
		}
		t[d] = row
	}
	return t
}

// DefaultTable returns a fresh default table. Every slot starts on Slow; the
// slow-mode limits are seeded from the session baseline on first start, so
// the default behaves like Normal until the user edits it.
func DefaultTable() PolicyTable {
	return NewTable(Slow)
}

// Validate checks the 7x24 shape and that every cell is a known Level.
// Errors wrap ErrConfigShape.
func (t PolicyTable) Validate() error {
	if len(t) != Days {
		return fmt.Errorf("%w: got %d weekday rows, want %d", ErrConfigShape, len(t), Days)
	}
	for d, row := range t {
		if len(row) != Hours {
			return fmt.Errorf("%w: %s has %d hours, want %d", ErrConfigShape, time.Weekday(d), len(row), Hours)
		}
		for h, l := range row {
			if !l.Valid() {
				return fmt.Errorf("%w: %s %02d:00 has level %d", ErrConfigShape, time.Weekday(d), h, int(l))
			}
		}
	}
	return nil
}

// At returns the level for the given weekday and hour.
// The table must be valid.
func (t PolicyTable) At(day time.Weekday, hour int) Level {
	return t[day][hour]
}

// Set changes a single slot.
func (t PolicyTable) Set(day time.Weekday, hour int, l Level) error {
	if day < time.Sunday || day > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrConfigShape, int(day))
	}
	if hour < 0 || hour >= Hours {
		return fmt.Errorf("%w: hour %d out of range", ErrConfigShape, hour)
	}
	if !l.Valid() {
		return fmt.Errorf("%w: level %d", ErrConfigShape, int(l))
	}
	t[day][hour] = l
	return nil
}

// Clone returns a deep copy of t.
func (t PolicyTable) Clone() PolicyTable {
	if t == nil {
		return nil
	}
	out := make(PolicyTable, len(t))
	for i, row := range t {
		out[i] = append([]Level(nil), row...)
	}
	return out
}
