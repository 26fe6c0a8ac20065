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
	Register(&WhoamiCmd{})
}

// WhoamiCmd implements the whoami command.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string        { return "whoami" }
func (c *WhoamiCmd) Aliases() []string   { return nil }
func (c *WhoamiCmd) Synopsis() string    { return "Print your display name" }
func (c *WhoamiCmd) Usage() string       { return "tasksync whoami" }
func (c *WhoamiCmd) NeedsApp() bool      { return true }
func (c *WhoamiCmd) NeedsIdentity() bool { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, a.User())
	return exitcode.Success
}
