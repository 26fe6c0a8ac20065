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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string        { return "logout" }
func (c *LogoutCmd) Aliases() []string   { return nil }
func (c *LogoutCmd) Synopsis() string    { return "Forget display name and cached items" }
func (c *LogoutCmd) Usage() string       { return "tasksync logout [common flags]" }
func (c *LogoutCmd) NeedsApp() bool      { return true }
func (c *LogoutCmd) NeedsIdentity() bool { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if _, ok := a.Session.Name(); !ok {
		// Saved items are dropped even without a name.
		if err := a.Cache.Purge(ctx); err != nil {
			fmt.Fprintf(errOut, "error: failed to log out: %v\n", err)
			return exitcode.AuthError
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if err := a.Logout(ctx); err != nil {
		fmt.Fprintf(errOut, "error: failed to log out: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
