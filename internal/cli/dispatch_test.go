package cli_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"tasksync/internal/app"
	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/testutil"
)

// testFactory creates an app factory backed by store, with user as the display name.
func testFactory(store *testutil.FakeStore, user string) cli.AppFactory {
	return func(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app.App, error) {
		cfg.Settings.CacheDB = ""
		return app.New(ctx, cfg, app.Options{Store: store, Session: session.NewMemory(user)})
	}
}

// run dispatches args with an isolated config directory.
func run(t *testing.T, factory cli.AppFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var outBuf, errBuf bytes.Buffer
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		args = append([]string{args[0], "--config", t.TempDir()}, args[1:]...)
	}
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeStore(), "alice"), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeStore(), "alice"), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, testFactory(testutil.NewFakeStore(), "alice"), "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.HasPrefix(stdout, "Usage:\n") {
		t.Errorf("expected usage text, got %q", stdout)
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	// The factory must not be consulted for commands that need no app.
	factory := func(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app.App, error) {
		t.Error("factory should not be called for version")
		return nil, errors.New("unexpected")
	}

	stdout, _, code := run(t, factory, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected 'tasksync 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeStore(), "alice"), "list", "--bogus")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -bogus\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeStore(), "alice"), "list", "--filter")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -filter\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_ListCommand(t *testing.T) {
	store := testutil.NewFakeStore()
	store.AddItem(service.Tasks, service.Item{ID: "1", Title: "Only", Author: "alice", Priority: service.PriorityDefault})

	stdout, _, code := run(t, testFactory(store, "alice"), "list")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "   1  [ ] Only (alice)\n" {
		t.Errorf("expected one listed item, got %q", stdout)
	}
}

func TestDispatcher_MissingIdentity(t *testing.T) {
	store := testutil.NewFakeStore()

	_, stderr, code := run(t, testFactory(store, ""), "add", "Buy", "milk")

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: no display name set (run: tasksync login <name>)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
	if store.TotalCalls() != 0 {
		t.Errorf("expected no store calls, got %d", store.TotalCalls())
	}
}

func TestDispatcher_UnknownCollection(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeStore(), "alice"), "list", "--collection", "bugs")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: collection: unknown collection: bugs\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_StoriesCollection(t *testing.T) {
	store := testutil.NewFakeStore()

	stdout, stderr, code := run(t, testFactory(store, "alice"), "add", "--collection", "stories", "--capability", "log in", "Login")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	stories := store.Items(service.Stories)
	if len(stories) != 1 || stories[0].Capability != "log in" {
		t.Errorf("expected one story with a capability, got %+v", stories)
	}
	if len(store.Items(service.Tasks)) != 0 {
		t.Error("tasks collection should be untouched")
	}
}

func TestDispatcher_FactoryBackendError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app.App, error) {
		return nil, errors.New("cannot reach store")
	}

	_, stderr, code := run(t, factory, "list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	expected := "error: backend error: cannot reach store\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}
