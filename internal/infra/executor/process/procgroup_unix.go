//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// killProcessGroup starts the tool in its own process group and makes
// context cancellation SIGKILL the whole group, so helpers spawned by the
// tool die with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
