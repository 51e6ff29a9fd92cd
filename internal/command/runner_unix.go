//go:build unix

package command

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const killGrace = 5 * time.Second

func setProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup signals the child's entire process group, escalating
// from SIGTERM to SIGKILL if it doesn't exit within killGrace. Runner.Run
// calls it when its context ends: the group holds the single command
// started there plus any children that command spawned.
func terminateGroup(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process == nil {
		return
	}
	pgid := cmd.Process.Pid
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
		pgroupWarnOnce.Do(func() {})
	}

	select {
	case <-done:
		return
	case <-time.After(killGrace):
	}

	var once sync.Once
	once.Do(func() { _ = unix.Kill(-pgid, unix.SIGKILL) })
}
