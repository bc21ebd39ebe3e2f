//go:build !windows

package llm

import (
	"os/exec"
	"syscall"
)

// configureProcAttr puts the command in its own process group and makes
// context cancellation kill the whole group, so helpers spawned by the
// command do not outlive it.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
			return err
		}
		return nil
	}
}
