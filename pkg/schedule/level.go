package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the bandwidth policy in force for a slot of the policy table.
type Level int

const (
	// Normal leaves the session on its own globally configured limits.
	Normal Level = iota
	// Slow applies the slow-mode download, upload and active limits.
	Slow
	// Stopped pauses the session entirely.
	Stopped
)

var levelNames = [...]string{"Normal", "Slow", "Stopped"}

// Valid reports whether l is one of Normal, Slow or Stopped.
func (l Level) Valid() bool {
	return l >= Normal && l <= Stopped
}

func (l Level) String() string {
	if !l.Valid() {
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// ParseLevel parses a level from its name, its table value ("0".."2") or
// the traffic-light colour used by older clients (green, yellow, red).
// Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "green", "0":
		return Normal, nil
	case "slow", "yellow", "1":
		return Slow, nil
	case "stopped", "stop", "red", "2":
		return Stopped, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}
