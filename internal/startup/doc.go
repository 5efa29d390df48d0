// Package startup loads configuration from the environment, validates the
// data directories and logs the startup banner, system information and
// shutdown progress.
package startup
