package schedule

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDefaultTable_FreshPerCall(t *testing.T) {
	a := DefaultTable()
	b := DefaultTable()
	a[0][0] = Stopped
	if b[0][0] != Slow {
		t.Fatal("default tables must not share rows")
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestPolicyTable_Validate(t *testing.T) {
	short := NewTable(Normal)[:6]
	ragged := NewTable(Normal)
	ragged[3] = ragged[3][:23]
	badCell := NewTable(Normal)
	badCell[5][12] = Level(3)
	negative := NewTable(Normal)
	negative[0][0] = Level(-1)

	tests := []struct {
		name  string
		table PolicyTable
		ok    bool
	}{
		{"valid", NewTable(Stopped), true},
		{"nil", nil, false},
		{"six rows", short, false},
		{"23 hours", ragged, false},
		{"level 3", badCell, false},
		{"level -1", negative, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrConfigShape) {
				t.Fatalf("expected ErrConfigShape, got %v", err)
			}
		})
	}
}

func TestPolicyTable_SetAndClone(t *testing.T) {
	tbl := NewTable(Normal)
	if err := tbl.Set(time.Wednesday, 22, Stopped); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := tbl.At(time.Wednesday, 22); got != Stopped {
		t.Fatalf("At = %v, want Stopped", got)
	}
	c := tbl.Clone()
	c[time.Wednesday][22] = Normal
	if tbl.At(time.Wednesday, 22) != Stopped {
		t.Fatal("Clone shares storage with the original")
	}

	if err := tbl.Set(time.Weekday(7), 0, Slow); !errors.Is(err, ErrConfigShape) {
		t.Errorf("weekday 7: got %v", err)
	}
	if err := tbl.Set(time.Monday, 24, Slow); !errors.Is(err, ErrConfigShape) {
		t.Errorf("hour 24: got %v", err)
	}
	if err := tbl.Set(time.Monday, 1, Level(9)); !errors.Is(err, ErrConfigShape) {
		t.Errorf("level 9: got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"normal": Normal, "Green": Normal, "0": Normal,
		"SLOW": Slow, "yellow": Slow, "1": Slow,
		"stopped": Stopped, "stop": Stopped, "red": Stopped, " 2 ": Stopped,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("purple"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevel_String(t *testing.T) {
	if Slow.String() != "Slow" || Stopped.String() != "Stopped" || Normal.String() != "Normal" {
		t.Fatal("unexpected level names")
	}
	if Level(5).String() != "Level(5)" {
		t.Fatalf("unexpected name for invalid level: %s", Level(5))
	}
}

func TestConfig_MergeOnlySuppliedFields(t *testing.T) {
	base := DefaultConfig(Limits{Download: 100, Upload: 20, Active: 8})
	down := 50.0
	merged := base.Merge(&ConfigUpdate{SlowDownloadLimit: &down})

	if merged.SlowDownloadLimit != 50 {
		t.Errorf("download = %v, want 50", merged.SlowDownloadLimit)
	}
	if merged.SlowUploadLimit != 20 || merged.SlowActiveLimit != 8 {
		t.Errorf("untouched fields changed: %+v", merged)
	}
	if base.SlowDownloadLimit != 100 {
		t.Error("Merge modified the receiver")
	}
}

func TestConfig_ValidateLimits(t *testing.T) {
	c := DefaultConfig(Limits{Download: -1, Upload: -1, Active: -1})
	if err := c.Validate(); err != nil {
		t.Fatalf("unlimited config invalid: %v", err)
	}
	c.SlowUploadLimit = math.NaN()
	if err := c.Validate(); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	c.SlowUploadLimit = 1
	c.SlowDownloadLimit = math.Inf(1)
	if err := c.Validate(); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	c.SlowDownloadLimit = 1e300
	if err := c.Validate(); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit for an overflowing limit, got %v", err)
	}
	c.SlowDownloadLimit = MaxLimit
	if err := c.Validate(); err != nil {
		t.Fatalf("MaxLimit rejected: %v", err)
	}
}

func TestBytesPerSecond(t *testing.T) {
	tests := []struct {
		kib  float64
		want int64
	}{
		{50, 51200},
		{10, 10240},
		{0.5, 512},
		{0, 0},
		{-1, Unlimited},
		{-7.5, Unlimited},
		{1e16, math.MaxInt64 / 1024 * 1024},
		{MaxLimit, math.MaxInt64 / 1024 * 1024},
	}
	for _, tt := range tests {
		if got := BytesPerSecond(tt.kib); got != tt.want {
			t.Errorf("BytesPerSecond(%v) = %d, want %d", tt.kib, got, tt.want)
		}
	}
}
