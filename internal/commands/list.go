package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/view"
)

func init() {
	Register(&ListCmd{})
}

const savedAtLayout = "2006-01-02 15:04"

// ListCmd implements the list command.
// Handles both `tasksync` (no args) and `tasksync list`.
type ListCmd struct {
	filter  string
	verbose bool
}

// SetFilter sets the filter (for testing).
func (c *ListCmd) SetFilter(filter string) {
	c.filter = filter
}

func (c *ListCmd) Name() string        { return "list" }
func (c *ListCmd) Aliases() []string   { return []string{"ls"} }
func (c *ListCmd) Synopsis() string    { return "List items" }
func (c *ListCmd) Usage() string       { return "tasksync list [--filter <mode>] [--verbose]" }
func (c *ListCmd) NeedsApp() bool      { return true }
func (c *ListCmd) NeedsIdentity() bool { return false }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
	fs.BoolVar(&c.verbose, "verbose", false, "")
	fs.BoolVar(&c.verbose, "v", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	filter, ok := parseFilter(c.filter, errOut)
	if !ok {
		return exitcode.UserError
	}

	if filter == view.Mine && a.User() == "" {
		return missingIdentity(errOut)
	}

	stale, err := a.Refresh(ctx)
	if err != nil {
		if !stale {
			return report(errOut, err)
		}
		// Last known items are still worth showing.
		if at, ok := a.SavedAt(ctx); ok {
			fmt.Fprintf(errOut, "warning: showing saved %s from %s: %v\n", a.Collection, at.Local().Format(savedAtLayout), err)
		} else {
			fmt.Fprintf(errOut, "warning: showing saved %s: %v\n", a.Collection, err)
		}
	}

	items := a.View(filter)
	if len(items) == 0 {
		if !cfg.Quiet {
			fmt.Fprintf(out, "no %s found\n", a.Collection)
		}
		return exitcode.Success
	}

	for i, item := range items {
		if c.verbose {
			output.FormatItemVerbose(out, i+1, item)
		} else {
			output.FormatItem(out, i+1, item)
		}
	}
	return exitcode.Success
}
