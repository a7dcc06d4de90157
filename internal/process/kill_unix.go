//go:build !windows

// Package process provides a hard-kill fallback for browser process trees.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group (negative PID) so
// Chrome helper processes die with the main process. Best effort; the
// graceful close has already run by the time this is called.
func KillProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
