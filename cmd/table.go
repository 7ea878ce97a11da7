package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

var (
	tableSetFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "day",
			Usage: "days to change: sun..sat, 0-6, ranges (mon-fri) or *",
			Value: "*",
		},
		cli.StringFlag{
			Name:  "hour",
			Usage: "hours to change: 0-23, ranges (9-17) or *",
			Value: "*",
		},
		cli.StringFlag{
			Name:  "level, l",
			Usage: "level to set: normal, slow or stopped",
		},
	}
)

var dayNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

var levelGlyphs = [...]string{".", "s", "X"}

func tableShow(ctx *cli.Context) error {
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "table", "new_client", err)
		return nil
	}
	defer client.Close()
	cfg, err := client.GetConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "table", "get_config", err)
		return nil
	}
	fmt.Print(formatTable(cfg.PolicyTable))
	return nil
}

func tableSet(ctx *cli.Context) error {
	if !ctx.IsSet("level") {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--level is required"))
	}
	level, err := schedule.ParseLevel(ctx.String("level"))
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	days, err := parseSlots(ctx.String("day"), schedule.Days, dayNames)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("day: %w", err))
	}
	hours, err := parseSlots(ctx.String("hour"), schedule.Hours, nil)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("hour: %w", err))
	}

	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "table", "new_client", err)
		return nil
	}
	defer client.Close()
	cfg, err := client.GetConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "table", "get_config", err)
		return nil
	}
	table := cfg.PolicyTable.Clone()
	for _, d := range days {
		for _, h := range hours {
			if err := table.Set(time.Weekday(d), h, level); err != nil {
				common.PrintRuntimeErr(ctx, "table", "set_slot", err)
				return nil
			}
		}
	}
	cfg, err = client.SetConfig(&schedule.ConfigUpdate{PolicyTable: table})
	if err != nil {
		common.PrintRuntimeErr(ctx, "table", "set_config", err)
		return nil
	}
	fmt.Print(formatTable(cfg.PolicyTable))
	return nil
}

func formatTable(t schedule.PolicyTable) string {
	txt := "     "
	for h := 0; h < schedule.Hours; h++ {
		txt += fmt.Sprintf("%02d ", h)
	}
	txt += "\n"
	for d := 0; d < schedule.Days && d < len(t); d++ {
		txt += fmt.Sprintf("%-5s", time.Weekday(d).String()[:3])
		for h := 0; h < schedule.Hours && h < len(t[d]); h++ {
			txt += common.Beaut(glyph(t[d][h]), 2) + " "
		}
		txt += "\n"
	}
	txt += "\n. Normal   s Slow   X Stopped\n"
	return txt
}

func glyph(l schedule.Level) string {
	if !l.Valid() {
		return "?"
	}
	return levelGlyphs[l]
}

// parseSlots expands a comma separated list of values, ranges and "*" into
// sorted, de-duplicated indexes below n. names maps lower-case aliases to
// indexes and may be nil.
func parseSlots(sel string, n int, names map[string]int) ([]int, error) {
	sel = strings.TrimSpace(strings.ToLower(sel))
	if sel == "" {
		return nil, fmt.Errorf("empty selection")
	}
	seen := make([]bool, n)
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "*" {
			for i := range seen {
				seen[i] = true
			}
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := slotIndex(lo, n, names)
		if err != nil {
			return nil, err
		}
		to := from
		if isRange {
			if to, err = slotIndex(hi, n, names); err != nil {
				return nil, err
			}
			if to < from {
				return nil, fmt.Errorf("descending range %q", part)
			}
		}
		for i := from; i <= to; i++ {
			seen[i] = true
		}
	}
	var out []int
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

func slotIndex(s string, n int, names map[string]int) (int, error) {
	s = strings.TrimSpace(s)
	if i, ok := names[s]; ok {
		return i, nil
	}
	if len(s) > 3 {
		if i, ok := names[s[:3]]; ok {
			return i, nil
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i >= n {
		return 0, fmt.Errorf("invalid value %q (want 0-%d)", s, n-1)
	}
	return i, nil
}
