package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/tui"
)

func init() {
	Register(&TuiCmd{})
}

// TuiCmd implements the tui command.
type TuiCmd struct{}

func (c *TuiCmd) Name() string        { return "tui" }
func (c *TuiCmd) Aliases() []string   { return []string{"ui"} }
func (c *TuiCmd) Synopsis() string    { return "Open the interactive list" }
func (c *TuiCmd) Usage() string       { return "tasksync tui [common flags]" }
func (c *TuiCmd) NeedsApp() bool      { return true }
func (c *TuiCmd) NeedsIdentity() bool { return false } // the UI asks for a name itself

func (c *TuiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TuiCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if err := tui.Run(ctx, a); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
