package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasksync/internal/app"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
// Only flags that were given on the command line change the item.
type EditCmd struct {
	filter string
	values map[string]string // flags given on the command line
}

var editFields = []string{"title", "description", "priority", "role", "capability", "benefit"}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change an item" }
func (c *EditCmd) Usage() string {
	return "tasksync edit [--filter <mode>] [--title <t>] [--description <d>] [--priority <p>] [--role <r>] [--capability <c>] [--benefit <b>] <ref>"
}
func (c *EditCmd) NeedsApp() bool      { return true }
func (c *EditCmd) NeedsIdentity() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	c.values = make(map[string]string)
	for _, name := range editFields {
		fs.Func(name, "", func(s string) error {
			c.values[name] = s
			return nil
		})
	}
}

// SetField sets a field as if its flag had been given (for testing).
func (c *EditCmd) SetField(name, value string) {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[name] = value
}

// set returns the value of a flag and whether it was given.
func (c *EditCmd) set(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	filter, ok := parseFilter(c.filter, errOut)
	if !ok {
		return exitcode.UserError
	}

	item, code, ok := resolveForMutation(ctx, a, args, filter, errOut)
	if !ok {
		return code
	}

	changed := false
	if v, ok := c.set("title"); ok {
		if strings.TrimSpace(v) == "" {
			fmt.Fprintln(errOut, "error: title: must not be empty")
			return exitcode.UserError
		}
		item.Title, changed = v, true
	}
	if v, ok := c.set("description"); ok {
		item.Description, changed = v, true
	}
	if v, ok := c.set("priority"); ok {
		item.Priority, changed = service.Priority(strings.ToLower(strings.TrimSpace(v))), true
	}
	if v, ok := c.set("role"); ok {
		item.Role, changed = v, true
	}
	if v, ok := c.set("capability"); ok {
		item.Capability, changed = v, true
	}
	if v, ok := c.set("benefit"); ok {
		item.Benefit, changed = v, true
	}
	if !changed {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	p, err := a.Coordinator.Update(ctx, item)
	if err != nil {
		return report(errOut, err)
	}
	return await(ctx, p, cfg.Quiet, out, errOut)
}
