package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	priority    string
	capability  string
	role        string
	benefit     string
}

// SetDescription sets the description (for testing).
func (c *AddCmd) SetDescription(d string) {
	c.description = d
}

// SetPriority sets the priority (for testing).
func (c *AddCmd) SetPriority(p string) {
	c.priority = p
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create an item" }
func (c *AddCmd) Usage() string {
	return "tasksync add [--description <d>] [--priority <p>] [--role <r> --capability <c> --benefit <b>] <title...>"
}
func (c *AddCmd) NeedsApp() bool      { return true }
func (c *AddCmd) NeedsIdentity() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.StringVar(&c.capability, "capability", "", "")
	fs.StringVar(&c.role, "role", "", "")
	fs.StringVar(&c.benefit, "benefit", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	draft := service.Draft{
		Title:       strings.Join(args, " "),
		Description: c.description,
		Priority:    service.Priority(strings.ToLower(strings.TrimSpace(c.priority))),
		Author:      a.User(),
		Capability:  c.capability,
		Role:        c.role,
		Benefit:     c.benefit,
	}

	// Validation happens before any request, so an empty draft never loads.
	p, err := a.Coordinator.Create(ctx, draft)
	if err != nil {
		return report(errOut, err)
	}
	return await(ctx, p, cfg.Quiet, out, errOut)
}
