package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/pkg/schedule"
)

func TestStatusCommand(t *testing.T) {
	startDaemon(t)
	app := cli.NewApp()
	out := captureStdout(t, func() {
		if err := status(newContext(app, nil, "status")); err != nil {
			t.Fatalf("status: %v", err)
		}
	})
	if !strings.Contains(out, "Level:          Slow") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	r := startDaemon(t)
	app := cli.NewApp()

	out := captureStdout(t, func() {
		_ = configGet(newContext(app, nil, "get"))
	})
	if !strings.Contains(out, "download: 1000 KiB/s") {
		t.Errorf("unexpected config get output:\n%s", out)
	}

	ctx := newContext(app, []string{"--down", "256", "--up", "unlimited", "--active", "2"}, "set", configSetFlags...)
	out = captureStdout(t, func() {
		if err := configSet(ctx); err != nil {
			t.Fatalf("configSet: %v", err)
		}
	})
	if !strings.Contains(out, "download: 256 KiB/s") {
		t.Errorf("unexpected config set output:\n%s", out)
	}
	cfg := r.Engine().GetConfig()
	if cfg.SlowDownloadLimit != 256 || cfg.SlowUploadLimit != schedule.Unlimited || cfg.SlowActiveLimit != 2 {
		t.Errorf("daemon config not updated: %+v", cfg)
	}
}

func TestTableCommands(t *testing.T) {
	r := startDaemon(t)
	app := cli.NewApp()

	out := captureStdout(t, func() {
		_ = tableShow(newContext(app, nil, "show"))
	})
	if !strings.Contains(out, "Mon") {
		t.Errorf("unexpected table output:\n%s", out)
	}

	ctx := newContext(app, []string{"--day", "mon", "--hour", "9", "--level", "stopped"}, "set", tableSetFlags...)
	captureStdout(t, func() {
		if err := tableSet(ctx); err != nil {
			t.Fatalf("tableSet: %v", err)
		}
	})
	cfg := r.Engine().GetConfig()
	if got := cfg.PolicyTable.At(time.Monday, 9); got != schedule.Stopped {
		t.Errorf("Monday 09 = %v, want Stopped", got)
	}
	if got := cfg.PolicyTable.At(time.Monday, 10); got != schedule.Slow {
		t.Errorf("Monday 10 = %v, want Slow", got)
	}
	if got := r.Engine().CurrentLevel(); got != schedule.Stopped {
		t.Errorf("level after table set = %v, want Stopped", got)
	}
}

func TestTableSetRequiresLevel(t *testing.T) {
	r := startDaemon(t)
	app := cli.NewApp()
	app.HelpName = "warpsched"
	ctx := newContext(app, []string{"--day", "mon"}, "set", tableSetFlags...)
	captureStdout(t, func() { _ = tableSet(ctx) })
	if got := r.Engine().GetConfig().PolicyTable.At(time.Monday, 0); got != schedule.Slow {
		t.Errorf("table changed without --level: %v", got)
	}
}

func TestRuleCommand(t *testing.T) {
	r := startDaemon(t)
	app := cli.NewApp()
	oldReset := ruleReset
	defer func() { ruleReset = oldReset }()

	ctx := newContext(app, []string{"--cron", "* 9-17 * * 1-5", "--level", "normal", "--reset"}, "rule", ruleFlags...)
	captureStdout(t, func() {
		if err := rule(ctx); err != nil {
			t.Fatalf("rule: %v", err)
		}
	})
	cfg := r.Engine().GetConfig()
	if got := cfg.PolicyTable.At(time.Wednesday, 12); got != schedule.Normal {
		t.Errorf("Wednesday 12 = %v, want Normal", got)
	}
	if got := cfg.PolicyTable.At(time.Saturday, 12); got != schedule.Slow {
		t.Errorf("Saturday 12 = %v, want Slow", got)
	}
	if got := r.Engine().CurrentLevel(); got != schedule.Normal {
		t.Errorf("level after rule = %v, want Normal", got)
	}
}

func TestHistoryCommandWithoutSQLite(t *testing.T) {
	startDaemon(t)
	app := cli.NewApp()
	app.HelpName = "warpsched"
	ctx := newContext(app, nil, "history", historyFlags...)
	out := captureStdout(t, func() {
		if err := history(ctx); err != nil {
			t.Fatalf("history: %v", err)
		}
	})
	if !strings.Contains(out, "history[get_history]") {
		t.Errorf("expected history error with the file store, got %q", out)
	}
}
