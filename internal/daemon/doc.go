// Package daemon provides single-instance locking and signal-aware lifecycle
// helpers shared by the unpack worker and GPU worker processes.
//
// Each worker binary constructs a Daemon, calls Run with its main loop, and
// relies on WithSignalContext to begin a graceful shutdown on SIGINT/SIGTERM.
// The flock-based lock file, kept in the log directory, prevents two
// instances of the same worker from running against that directory at once.
package daemon
