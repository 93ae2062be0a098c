//go:build !unix

package executor

import "os/exec"

// configureProcessGroup keeps the default behaviour of killing only the
// direct child on platforms without process groups.
func configureProcessGroup(cmd *exec.Cmd) {}
