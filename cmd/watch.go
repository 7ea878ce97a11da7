package cmd

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/warpsched/cmd/common"
	sharedcommon "github.com/warpdl/warpsched/common"
	"github.com/warpdl/warpsched/pkg/schedule"
)

const watchRefresh = time.Second

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "new_client", err)
		return nil
	}
	defer client.Close()
	st, err := client.GetState()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "get_state", err)
		return nil
	}

	sctx, cancel := setupShutdownHandler()
	defer cancel()

	var label atomic.Value
	label.Store(st.Level)
	changed := make(chan struct{}, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- client.Watch(sctx, func(level string) {
			label.Store(level)
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	total := int64(schedule.TickInterval / time.Second)
	p := mpb.NewWithContext(sctx, mpb.WithWidth(64))
	bar := common.InitCountdownBar(p, func() string { return label.Load().(string) }, total)

	ticker := time.NewTicker(watchRefresh)
	defer ticker.Stop()
	next := nextTick(st)
	for {
		cur, _ := countdown(next, time.Now(), total)
		bar.SetCurrent(cur)
		select {
		case <-sctx.Done():
			bar.Abort(false)
			p.Wait()
			return nil
		case err := <-watchErr:
			bar.Abort(false)
			p.Wait()
			if err != nil {
				common.PrintRuntimeErr(ctx, "watch", "watch", err)
			}
			return nil
		case <-changed:
			next = refreshNext(ctx, client.GetState, next)
		case now := <-ticker.C:
			if !next.IsZero() && !now.Before(next) {
				next = refreshNext(ctx, client.GetState, next)
			}
		}
	}
}

func nextTick(st *sharedcommon.StateResult) time.Time {
	if st.NextTick == nil {
		return time.Time{}
	}
	return *st.NextTick
}

// refreshNext re-reads the daemon state; on failure the previous deadline
// is kept.
func refreshNext(ctx *cli.Context, get func() (*sharedcommon.StateResult, error), prev time.Time) time.Time {
	st, err := get()
	if err != nil {
		fmt.Println()
		common.PrintRuntimeErr(ctx, "watch", "get_state", err)
		return prev
	}
	return nextTick(st)
}

// countdown returns the elapsed seconds of the interval ending at next,
// clamped below total so the bar never completes.
func countdown(next, now time.Time, total int64) (current, remaining int64) {
	if next.IsZero() {
		return 0, total
	}
	remaining = int64(next.Sub(now).Round(time.Second) / time.Second)
	switch {
	case remaining < 1:
		remaining = 1
	case remaining > total:
		remaining = total
	}
	return total - remaining, remaining
}
