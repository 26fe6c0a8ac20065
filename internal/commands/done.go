package commands

import (
	"context"
	"flag"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. Running it on a completed item
// reopens it.
type DoneCmd struct {
	filter string
}

// SetFilter sets the filter used to number items (for testing).
func (c *DoneCmd) SetFilter(filter string) {
	c.filter = filter
}

func (c *DoneCmd) Name() string        { return "done" }
func (c *DoneCmd) Aliases() []string   { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string    { return "Toggle an item's completed state" }
func (c *DoneCmd) Usage() string       { return "tasksync done [--filter <mode>] <ref>" }
func (c *DoneCmd) NeedsApp() bool      { return true }
func (c *DoneCmd) NeedsIdentity() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	filter, ok := parseFilter(c.filter, errOut)
	if !ok {
		return exitcode.UserError
	}

	item, code, ok := resolveForMutation(ctx, a, args, filter, errOut)
	if !ok {
		return code
	}

	p, err := a.Coordinator.Toggle(ctx, item)
	if err != nil {
		return report(errOut, err)
	}
	return await(ctx, p, cfg.Quiet, out, errOut)
}
