// Package calcheck provides public constants for tools integrating with
// calcheck.
package calcheck

// Exit codes returned by the calcheck CLI and by finished sessions.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates every check passed, or that none were defined.
	ExitSuccess = 0

	// ExitFailure indicates at least one check failed.
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (invalid config,
	// suite validation failure, etc.).
	ExitConfigError = 2

	// ExitEnvError indicates an environment error (solver executable
	// missing, unreadable input, etc.).
	ExitEnvError = 3
)
