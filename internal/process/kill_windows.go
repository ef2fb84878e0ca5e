//go:build windows

package process

import "os/exec"

// setProcessGroup is a no-op on windows; the container runtime this
// executor drives is assumed to run on a linux docker host.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup falls back to killing the direct child only.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
