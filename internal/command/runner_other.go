//go:build !unix

package command

import (
	"os/exec"
	"time"
)

const killGrace = 5 * time.Second

func setProcAttrs(cmd *exec.Cmd) {}

func terminateGroup(cmd *exec.Cmd, done <-chan error) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-done
}
