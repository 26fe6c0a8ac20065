// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, unknown item).
	UserError = 1

	// AuthError indicates a missing display name or unusable config directory.
	AuthError = 2

	// BackendError indicates a remote store failure or a rolled back mutation.
	BackendError = 3
)
