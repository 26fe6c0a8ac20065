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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	filter string
}

func (c *RmCmd) Name() string        { return "rm" }
func (c *RmCmd) Aliases() []string   { return []string{"delete"} }
func (c *RmCmd) Synopsis() string    { return "Delete an item" }
func (c *RmCmd) Usage() string       { return "tasksync rm [--filter <mode>] <ref>" }
func (c *RmCmd) NeedsApp() bool      { return true }
func (c *RmCmd) NeedsIdentity() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	filter, ok := parseFilter(c.filter, errOut)
	if !ok {
		return exitcode.UserError
	}

	item, code, ok := resolveForMutation(ctx, a, args, filter, errOut)
	if !ok {
		return code
	}

	p, err := a.Coordinator.Delete(ctx, item.ID)
	if err != nil {
		return report(errOut, err)
	}
	return await(ctx, p, cfg.Quiet, out, errOut)
}
