package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	sharedcommon "github.com/warpdl/warpsched/common"
)

func status(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "new_client", err)
		return nil
	}
	defer client.Close()
	st, err := client.GetState()
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "get_state", err)
		return nil
	}
	fmt.Print(formatState(st, time.Now()))
	return nil
}

func formatState(st *sharedcommon.StateResult, now time.Time) string {
	txt := fmt.Sprintf("Level:          %s\n", st.Level)
	txt += fmt.Sprintf("Previous:       %s\n", st.Previous)
	txt += fmt.Sprintf("Paused:         %t\n", st.Paused)
	if st.NextTick != nil {
		left := st.NextTick.Sub(now).Round(time.Second)
		if left < 0 {
			left = 0
		}
		txt += fmt.Sprintf("Next check:     %s (in %s)\n", st.NextTick.Local().Format(time.DateTime), left)
	} else {
		txt += "Next check:     not scheduled\n"
	}
	if st.LastReconcile != nil {
		txt += fmt.Sprintf("Last reconcile: %s\n", st.LastReconcile.Local().Format(time.DateTime))
	}
	if st.LastError != "" {
		txt += fmt.Sprintf("Last error:     %s\n", st.LastError)
	}
	return txt
}
