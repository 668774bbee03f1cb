//go:build linux

package exec

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// fromTerminal is replaced in tests.
var fromTerminal = terminalSignal

// terminalSignal reports whether the child already received sig from the
// controlling terminal. The terminal sends SIGINT and SIGQUIT to its whole
// foreground process group, and the child shares cpopen's group.
//
// A SIGINT sent with kill(1) while cpopen is in the foreground is not told
// apart from Ctrl-C and is not forwarded either.
func terminalSignal(sig os.Signal) bool {
	if sig != syscall.SIGINT && sig != syscall.SIGQUIT {
		return false
	}
	for _, fd := range []int{0, 1, 2} {
		if term.IsTerminal(fd) {
			return inForeground(fd)
		}
	}
	return false
}

// inForeground reports whether the process group of cpopen is the
// foreground group of the terminal on fd.
func inForeground(fd int) bool {
	pgrp, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	return err == nil && pgrp == unix.Getpgrp()
}
