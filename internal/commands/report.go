package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tasksync/internal/app"
	"tasksync/internal/exitcode"
	"tasksync/internal/mutation"
	"tasksync/internal/service"
	"tasksync/internal/view"
)

// report prints err and returns the exit code for its kind.
func report(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNotFound):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// parseFilter validates a --filter value.
func parseFilter(s string, errOut io.Writer) (view.Filter, bool) {
	f, err := view.ParseFilter(s)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", false
	}
	return f, true
}

// resolveForMutation loads the collection and resolves the item reference in args.
func resolveForMutation(ctx context.Context, a *app.App, args []string, filter view.Filter, errOut io.Writer) (service.Item, int, bool) {
	ref, err := ParseItemRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Item{}, exitcode.UserError, false
	}

	if _, err := a.Cache.Load(ctx); err != nil {
		return service.Item{}, report(errOut, err), false
	}

	item, err := ResolveItemRef(a, ref, filter)
	if err != nil {
		return service.Item{}, report(errOut, err), false
	}
	return item, exitcode.Success, true
}

// await blocks until p resolves and reports the outcome.
func await(ctx context.Context, p *mutation.Pending, quiet bool, out, errOut io.Writer) int {
	if _, err := p.Wait(ctx); err != nil {
		return report(errOut, err)
	}
	if !quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// missingIdentity reports that no display name is stored.
func missingIdentity(errOut io.Writer) int {
	fmt.Fprintln(errOut, "error: no display name set (run: tasksync login <name>)")
	return exitcode.AuthError
}
