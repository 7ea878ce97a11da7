package schedule

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

// Rule assigns Level to every table slot matched by a five-field cron
// expression, e.g. "* 9-17 * * 1-5" for office hours.
//
// Rules are matched at the top of each hour of a reference week, so the
// minute field must match minute 0 and the day-of-month and month fields
// should be "*".
type Rule struct {
	Expr  string `json:"cron"`
	Level Level  `json:"level"`
}

// referenceWeek is a Sunday at midnight, so day offsets line up with
// time.Weekday and with cron's day-of-week numbering.
var referenceWeek = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// CompileRules applies rules in order onto a copy of base. Later rules win
// where they overlap.
func CompileRules(base PolicyTable, rules []Rule) (PolicyTable, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	g := gronx.New()
	out := base.Clone()
	for i, r := range rules {
		if !r.Level.Valid() {
			return nil, fmt.Errorf("%w: rule %d has level %d", ErrInvalidRule, i, int(r.Level))
		}
		if !g.IsValid(r.Expr) {
			return nil, fmt.Errorf("%w: rule %d: %q", ErrInvalidRule, i, r.Expr)
		}
		matched := 0
		for d := 0; d < Days; d++ {
			for h := 0; h < Hours; h++ {
				at := referenceWeek.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
				due, err := g.IsDue(r.Expr, at)
				if err != nil {
					return nil, fmt.Errorf("%w: rule %d: %v", ErrInvalidRule, i, err)
				}
				if due {
					out[d][h] = r.Level
					matched++
				}
			}
		}
		if matched == 0 {
			return nil, fmt.Errorf("%w: rule %d: %q matches no hour of the week", ErrInvalidRule, i, r.Expr)
		}
	}
	return out, nil
}
