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
	Register(&ResyncCmd{})
}

// ResyncCmd implements the resync command.
type ResyncCmd struct{}

func (c *ResyncCmd) Name() string        { return "resync" }
func (c *ResyncCmd) Aliases() []string   { return []string{"reset"} }
func (c *ResyncCmd) Synopsis() string    { return "Drop cached items and reload" }
func (c *ResyncCmd) Usage() string       { return "tasksync resync [common flags]" }
func (c *ResyncCmd) NeedsApp() bool      { return true }
func (c *ResyncCmd) NeedsIdentity() bool { return false }

func (c *ResyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ResyncCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if err := a.Resync(ctx); err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "%d %s\n", len(a.Cache.Get()), a.Collection)
	}
	return exitcode.Success
}
