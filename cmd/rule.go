package cmd

import (
	"fmt"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

var (
	ruleReset bool

	ruleFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "cron, c",
			Usage: "5-field cron expression selecting the slots",
		},
		cli.StringFlag{
			Name:  "level, l",
			Usage: "level for the matched slots: normal, slow or stopped",
		},
		cli.BoolFlag{
			Name:        "reset",
			Usage:       "start from the default table instead of the current one",
			Destination: &ruleReset,
		},
	}
)

func rule(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	expr := ctx.String("cron")
	if expr == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--cron is required"))
	}
	level, err := schedule.ParseLevel(ctx.String("level"))
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "rule", "new_client", err)
		return nil
	}
	defer client.Close()
	cfg, err := client.ApplyRules([]schedule.Rule{{Expr: expr, Level: level}}, ruleReset)
	if err != nil {
		common.PrintRuntimeErr(ctx, "rule", "apply_rules", err)
		return nil
	}
	fmt.Print(formatTable(cfg.PolicyTable))
	return nil
}
