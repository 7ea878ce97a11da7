package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	sharedcommon "github.com/warpdl/warpsched/common"
	daemonpkg "github.com/warpdl/warpsched/internal/daemon"
	"github.com/warpdl/warpsched/pkg/logger"
	"github.com/warpdl/warpsched/pkg/schedule"
	"github.com/warpdl/warpsched/pkg/session"
)

var (
	storeBackend     string
	maxDownloadSpeed string
	maxUploadSpeed   string
	maxActive        int
	logFormat        string
	debugLog         bool

	daemonFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-dir",
			Usage: "same as the global --config-dir",
		},
		cli.StringFlag{
			Name:        "store",
			Usage:       "config store backend: file or sqlite",
			EnvVar:      sharedcommon.StoreEnv,
			Value:       sharedcommon.StoreFile,
			Destination: &storeBackend,
		},
		cli.StringFlag{
			Name:        "max-download-speed, s",
			Usage:       "baseline download limit, e.g. 512KB, 2MB (default: unlimited)",
			Value:       "unlimited",
			Destination: &maxDownloadSpeed,
		},
		cli.StringFlag{
			Name:        "max-upload-speed, u",
			Usage:       "baseline upload limit (default: unlimited)",
			Value:       "unlimited",
			Destination: &maxUploadSpeed,
		},
		cli.IntFlag{
			Name:        "max-active, a",
			Usage:       "baseline number of concurrent transfers, -1 for unlimited",
			Value:       schedule.Unlimited,
			Destination: &maxActive,
		},
		cli.StringFlag{
			Name:        "log-format",
			Usage:       "log output format: text or json",
			Value:       "text",
			Destination: &logFormat,
		},
		cli.BoolFlag{
			Name:        "debug, d",
			Usage:       "enable debug logging",
			EnvVar:      sharedcommon.DebugEnv,
			Destination: &debugLog,
		},
	}
)

// runDaemon is replaced in tests.
var runDaemon = func(ctx context.Context, cfg *daemonpkg.Config, l logger.Logger) error {
	return daemonpkg.New(cfg, &daemonpkg.Dependencies{Logger: l}).Start(ctx)
}

func daemon(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if dir := ctx.String("config-dir"); dir != "" {
		configDir = dir
	}
	baseline, err := baselineLimits()
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	l, err := newDaemonLogger(logFormat, debugLog)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	defer l.Close()

	sctx, cancel := setupShutdownHandler()
	defer cancel()

	err = runDaemon(sctx, &daemonpkg.Config{
		ConfigDir: configDir,
		Addr:      rpcAddr,
		Secret:    rpcSecret,
		Store:     storeBackend,
		Baseline:  baseline,
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	}, l)
	if err != nil && !errors.Is(err, context.Canceled) {
		common.PrintRuntimeErr(ctx, "daemon", "start", err)
	}
	return nil
}

func baselineLimits() (schedule.Limits, error) {
	down, err := parseKiB(maxDownloadSpeed)
	if err != nil {
		return schedule.Limits{}, fmt.Errorf("max-download-speed: %w", err)
	}
	up, err := parseKiB(maxUploadSpeed)
	if err != nil {
		return schedule.Limits{}, fmt.Errorf("max-upload-speed: %w", err)
	}
	active := maxActive
	if active < 0 {
		active = schedule.Unlimited
	}
	return schedule.Limits{Download: down, Upload: up, Active: active}, nil
}

// parseKiB reads a rate in KiB/s. A bare number is taken as KiB/s; a value
// with a unit goes through session.ParseSpeedLimit.
func parseKiB(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			return schedule.Unlimited, nil
		}
		return f, nil
	}
	bps, err := session.ParseSpeedLimit(s)
	if err != nil {
		return 0, err
	}
	return session.KiBPerSecond(bps), nil
}

func newDaemonLogger(format string, debug bool) (logger.Logger, error) {
	switch strings.ToLower(format) {
	case "", "text":
		l := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
		l.SetDebug(debug)
		return l, nil
	case "json":
		return logger.NewJSONLogger(debug)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
