//go:build !unix

package process

import "os/exec"

// killProcessGroup keeps the default behaviour: only the tool process is
// killed on cancellation.
func killProcessGroup(*exec.Cmd) {}
