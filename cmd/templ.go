package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
warpsched throttles or pauses a transfer session according to a weekly
7x24 table. Every hour slot holds one of three levels: Normal leaves the
session on its own limits, Slow applies the slow-mode limits and Stopped
pauses it. The daemon re-evaluates the table at every hour boundary.
`

const (
	DaemonDescription = `The daemon command runs the scheduler and serves its JSON-RPC,
WebSocket, REST and metrics endpoints until interrupted.

Example:
        warpsched daemon --store sqlite --max-download-speed 2MB

`
	StatusDescription = `The status command prints the level in force, the previous
level and when the table is evaluated next.

Example:
        warpsched status

`
	WatchDescription = `The watch command shows a countdown to the next evaluation
and follows level changes pushed by the daemon.

Example:
        warpsched watch

`
	ConfigDescription = `The config command reads or updates the slow-mode limits.
Rates are in KiB/s unless a unit (B, KB, MB, GB) is given;
-1 or "unlimited" lifts a limit.

Example:
        warpsched config get
        warpsched config set --down 512 --up 64KB --active 2

`
	TableDescription = `The table command prints or edits the weekly policy table.
Days accept names (mon), numbers (0 is Sunday), ranges (1-5)
and * for all. Hours accept 0-23, ranges and *.

Example:
        warpsched table show
        warpsched table set --day mon-fri --hour 9-17 --level normal

`
	RuleDescription = `The rule command sets every slot matched by a cron expression
to the given level. With --reset the rule is applied to the
default table instead of the current one.

Example:
        warpsched rule --cron "* 0-6 * * *" --level normal

`
	HistoryDescription = `The history command lists recent level transitions.
It needs a daemon started with the sqlite store.

Example:
        warpsched history --limit 10

`
)
