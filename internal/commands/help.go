package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string        { return "help" }
func (c *HelpCmd) Aliases() []string   { return nil }
func (c *HelpCmd) Synopsis() string    { return "Print usage" }
func (c *HelpCmd) Usage() string       { return "tasksync help" }
func (c *HelpCmd) NeedsApp() bool      { return false }
func (c *HelpCmd) NeedsIdentity() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasksync                                        List all items
  tasksync list [common flags] [--filter <mode>] [--verbose]
  tasksync add [common flags] [--description <d>] [--priority <p>] <title...>
               [--role <r>] [--capability <c>] [--benefit <b>]
  tasksync edit [common flags] [--filter <mode>] [--title <t>] [--description <d>]
               [--priority <p>] [--role <r>] [--capability <c>] [--benefit <b>] <ref>
  tasksync done [common flags] [--filter <mode>] <ref>
  tasksync toggle [common flags] [--filter <mode>] <ref>
  tasksync rm [common flags] [--filter <mode>] <ref>
  tasksync resync [common flags]
  tasksync tui [common flags]
  tasksync login [common flags] <name...>
  tasksync logout [common flags]
  tasksync whoami [common flags]
  tasksync help
  tasksync version

References:
  <n>              Item number as printed by list with the same --filter
  @<id>            Item id

Filters:
  all, mine (my-tasks, my-stories), completed, incomplete

Common flags:
  --config <dir>        Override config directory
  --collection <name>   tasks or stories
  --quiet               Suppress informational output
  --debug               Print debug logs to stderr

Exit codes:
  0  success
  1  invalid input or unknown item
  2  no display name set
  3  remote store or sync failure
`
