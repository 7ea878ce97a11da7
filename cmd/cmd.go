package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/warpsched/cmd/common"
	sharedcommon "github.com/warpdl/warpsched/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

var (
	rpcAddr   string
	rpcSecret string
	configDir string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "daemon address to listen on or connect to",
			EnvVar:      sharedcommon.RPCAddrEnv,
			Value:       sharedcommon.DefaultRPCAddr,
			Destination: &rpcAddr,
		},
		cli.StringFlag{
			Name:        "secret",
			Usage:       "RPC bearer token (default: read from the keyring)",
			EnvVar:      sharedcommon.RPCSecretEnv,
			Destination: &rpcSecret,
		},
		cli.StringFlag{
			Name:        "config-dir",
			Usage:       "directory holding the config store and secret fallback",
			EnvVar:      sharedcommon.ConfigDirEnv,
			Destination: &configDir,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "warpsched",
		HelpName:              "warpsched",
		Usage:                 "An hourly bandwidth scheduler.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "warpsched [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "runs the scheduler daemon",
				Action:             daemon,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DaemonDescription,
				Flags:              daemonFlags,
			},
			{
				Name:               "status",
				Aliases:            []string{"s"},
				Usage:              "shows the level in force",
				Action:             status,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StatusDescription,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "follows level changes live",
				Action:             watch,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        WatchDescription,
			},
			{
				Name:               "config",
				Usage:              "reads or updates the slow-mode limits",
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        ConfigDescription,
				Subcommands: []cli.Command{
					{
						Name:   "get",
						Usage:  "prints the scheduler configuration",
						Action: configGet,
					},
					{
						Name:         "set",
						Usage:        "updates the slow-mode limits",
						Action:       configSet,
						Flags:        configSetFlags,
						OnUsageError: common.UsageErrorCallback,
					},
				},
			},
			{
				Name:               "table",
				Aliases:            []string{"t"},
				Usage:              "prints or edits the policy table",
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        TableDescription,
				Subcommands: []cli.Command{
					{
						Name:   "show",
						Usage:  "prints the weekly table",
						Action: tableShow,
					},
					{
						Name:         "set",
						Usage:        "sets a block of slots to a level",
						Action:       tableSet,
						Flags:        tableSetFlags,
						OnUsageError: common.UsageErrorCallback,
					},
				},
			},
			{
				Name:               "rule",
				Usage:              "applies a cron rule to the table",
				Action:             rule,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        RuleDescription,
				Flags:              ruleFlags,
			},
			{
				Name:               "history",
				Usage:              "lists recent level transitions",
				Action:             history,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        HistoryDescription,
				Flags:              historyFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of warpsched",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
