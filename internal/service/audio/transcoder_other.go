//go:build !unix

package audio

import "os/exec"

func killProcessGroup(cmd *exec.Cmd) {}
