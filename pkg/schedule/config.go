package schedule

import (
	"fmt"
	"math"
)

// Unlimited marks a rate or active limit as not limited.
const Unlimited = -1

// Limits is a set of global session limits. Rates are in KiB/s and any
// negative value means unlimited.
type Limits struct {
	Download float64 `json:"download_limit"`
	Upload   float64 `json:"upload_limit"`
	Active   int     `json:"active_limit"`
}

// Config is the persisted scheduler configuration.
type Config struct {
	PolicyTable       PolicyTable `json:"policy_table"`
	SlowDownloadLimit float64     `json:"slow_download_limit"`
	SlowUploadLimit   float64     `json:"slow_upload_limit"`
	SlowActiveLimit   int         `json:"slow_active_limit"`
}

// DefaultConfig builds the first-run configuration, seeding the slow-mode
// limits from the session's baseline limits.
func DefaultConfig(base Limits) *Config {
	return &Config{
		PolicyTable:       DefaultTable(),
		SlowDownloadLimit: base.Download,
		SlowUploadLimit:   base.Upload,
		SlowActiveLimit:   base.Active,
	}
}

// Validate checks the table shape and the limit values.
func (c *Config) Validate() error {
	if err := c.PolicyTable.Validate(); err != nil {
		return err
	}
	if !finite(c.SlowDownloadLimit) || c.SlowDownloadLimit > MaxLimit {
		return fmt.Errorf("%w: slow_download_limit %v", ErrInvalidLimit, c.SlowDownloadLimit)
	}
	if !finite(c.SlowUploadLimit) || c.SlowUploadLimit > MaxLimit {
		return fmt.Errorf("%w: slow_upload_limit %v", ErrInvalidLimit, c.SlowUploadLimit)
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.PolicyTable = c.PolicyTable.Clone()
	return &out
}

// ConfigUpdate is a partial configuration. Only non-nil fields overwrite the
// current configuration.
type ConfigUpdate struct {
	PolicyTable       PolicyTable `json:"policy_table,omitempty"`
	SlowDownloadLimit *float64    `json:"slow_download_limit,omitempty"`
	SlowUploadLimit   *float64    `json:"slow_upload_limit,omitempty"`
	SlowActiveLimit   *int        `json:"slow_active_limit,omitempty"`
}

// UpdateFrom returns an update that replaces every field with the values of c.
func UpdateFrom(c *Config) *ConfigUpdate {
	down, up, active := c.SlowDownloadLimit, c.SlowUploadLimit, c.SlowActiveLimit
	return &ConfigUpdate{
		PolicyTable:       c.PolicyTable.Clone(),
		SlowDownloadLimit: &down,
		SlowUploadLimit:   &up,
		SlowActiveLimit:   &active,
	}
}

// Merge returns a copy of c with the fields supplied in u applied.
// c is not modified.
func (c *Config) Merge(u *ConfigUpdate) *Config {
	out := c.Clone()
	if u == nil {
		return out
	}
	if u.PolicyTable != nil {
		out.PolicyTable = u.PolicyTable.Clone()
	}
	if u.SlowDownloadLimit != nil {
		out.SlowDownloadLimit = *u.SlowDownloadLimit
	}
	if u.SlowUploadLimit != nil {
		out.SlowUploadLimit = *u.SlowUploadLimit
	}
	if u.SlowActiveLimit != nil {
		out.SlowActiveLimit = *u.SlowActiveLimit
	}
	return out
}

// MaxLimit is the largest KiB/s limit whose byte rate fits in an int64.
const MaxLimit = float64(math.MaxInt64 / 1024)

// BytesPerSecond converts a KiB/s limit to the bytes/s value handed to the
// session. Negative limits map to Unlimited; limits above MaxLimit are
// clamped.
func BytesPerSecond(kib float64) int64 {
	if kib < 0 {
		return Unlimited
	}
	if kib >= MaxLimit {
		return math.MaxInt64 / 1024 * 1024
	}
	return int64(kib * 1024)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
