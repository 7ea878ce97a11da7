package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	sharedcommon "github.com/warpdl/warpsched/common"
)

var (
	historyLimit int

	historyFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "number of transitions to show, 0 for all",
			Value:       20,
			Destination: &historyLimit,
		},
	}
)

func history(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "new_client", err)
		return nil
	}
	defer client.Close()
	res, err := client.History(historyLimit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "get_history", err)
		return nil
	}
	fmt.Print(formatHistory(res.Transitions))
	return nil
}

func formatHistory(list []sharedcommon.HistoryEntry) string {
	if len(list) == 0 {
		return "warpsched: no transitions recorded\n"
	}
	txt := ""
	for _, e := range list {
		txt += fmt.Sprintf("%s  %-7s -> %-7s (%s)\n",
			e.At.Local().Format(time.DateTime), e.From, e.To, e.Trigger)
	}
	return txt
}
