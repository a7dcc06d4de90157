//go:build windows

// Package process provides a hard-kill fallback for browser process trees.
package process

import (
	"os/exec"
	"strconv"
)

// KillProcessGroup force-kills the process tree via taskkill (/F force,
// /T include children). Best effort; the graceful close has already run
// by the time this is called.
func KillProcessGroup(pid int) {
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
