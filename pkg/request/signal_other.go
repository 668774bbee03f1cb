//go:build !unix

package request

import (
	"strconv"
	"syscall"
)

// Only numeric signals are understood without a unix signal table.
func signalNum(string) syscall.Signal {
	return 0
}

// SignalName returns the number of sig.
func SignalName(sig syscall.Signal) string {
	return strconv.Itoa(int(sig))
}
