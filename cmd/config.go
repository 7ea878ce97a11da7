package cmd

import (
	"fmt"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

var (
	configSetFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "down",
			Usage: "slow-mode download limit in KiB/s, or with a unit (512KB, 1MB); -1 for unlimited",
		},
		cli.StringFlag{
			Name:  "up",
			Usage: "slow-mode upload limit in KiB/s, or with a unit; -1 for unlimited",
		},
		cli.IntFlag{
			Name:  "active",
			Usage: "slow-mode number of concurrent transfers, -1 for unlimited",
		},
	}
)

func configGet(ctx *cli.Context) error {
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "new_client", err)
		return nil
	}
	defer client.Close()
	cfg, err := client.GetConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "get_config", err)
		return nil
	}
	fmt.Print(formatLimits(cfg))
	return nil
}

func configSet(ctx *cli.Context) error {
	u, err := configUpdateFromFlags(ctx)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "new_client", err)
		return nil
	}
	defer client.Close()
	cfg, err := client.SetConfig(u)
	if err != nil {
		common.PrintRuntimeErr(ctx, "config", "set_config", err)
		return nil
	}
	fmt.Print(formatLimits(cfg))
	return nil
}

// configUpdateFromFlags builds an update holding only the flags given.
func configUpdateFromFlags(ctx *cli.Context) (*schedule.ConfigUpdate, error) {
	u := &schedule.ConfigUpdate{}
	if ctx.IsSet("down") {
		v, err := parseKiB(ctx.String("down"))
		if err != nil {
			return nil, fmt.Errorf("down: %w", err)
		}
		u.SlowDownloadLimit = &v
	}
	if ctx.IsSet("up") {
		v, err := parseKiB(ctx.String("up"))
		if err != nil {
			return nil, fmt.Errorf("up: %w", err)
		}
		u.SlowUploadLimit = &v
	}
	if ctx.IsSet("active") {
		v := ctx.Int("active")
		if v < 0 {
			v = schedule.Unlimited
		}
		u.SlowActiveLimit = &v
	}
	if u.SlowDownloadLimit == nil && u.SlowUploadLimit == nil && u.SlowActiveLimit == nil {
		return nil, fmt.Errorf("nothing to set: use --down, --up or --active")
	}
	return u, nil
}

func formatRate(kib float64) string {
	if kib < 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%g KiB/s", kib)
}

func formatLimits(cfg *schedule.Config) string {
	active := "unlimited"
	if cfg.SlowActiveLimit >= 0 {
		active = fmt.Sprint(cfg.SlowActiveLimit)
	}
	txt := "Slow-mode limits:\n"
	txt += fmt.Sprintf("  download: %s\n", formatRate(cfg.SlowDownloadLimit))
	txt += fmt.Sprintf("  upload:   %s\n", formatRate(cfg.SlowUploadLimit))
	txt += fmt.Sprintf("  active:   %s\n", active)
	return txt
}
