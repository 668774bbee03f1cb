//go:build unix

package request

import (
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

func signalNum(name string) syscall.Signal {
	return unix.SignalNum(name)
}

// SignalName returns the conventional name of sig, such as "SIGTERM", or
// its number when the name is unknown.
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return strconv.Itoa(int(sig))
}
