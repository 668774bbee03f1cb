package spawn

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrInvalidArgument is wrapped by every validation failure. No process
	// is created when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSupported is returned on platforms without the raw fork path.
	ErrNotSupported = errors.New("spawn not supported on this platform")
)

// Kind classifies where a spawn failed.
type Kind int

const (
	// KindResource means the error channel could not be allocated.
	KindResource Kind = iota + 1
	// KindFork means fork failed with a non-transient error.
	KindFork
	// KindDeathSignal means the child could not register its death signal.
	KindDeathSignal
	// KindChildSetup means descriptor, directory or signal setup failed in the child.
	KindChildSetup
	// KindExec means exec itself failed.
	KindExec
	// KindProtocol means the error channel carried a malformed message.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindFork:
		return "fork"
	case KindDeathSignal:
		return "death signal"
	case KindChildSetup:
		return "child setup"
	case KindExec:
		return "exec"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Error is an OS-level spawn failure.
type Error struct {
	Kind Kind
	Op   string        // system call or step that failed, e.g. "pipe2", "chdir"
	Pid  int           // child pid when the failure happened after fork, else 0
	Err  syscall.Errno // underlying errno
}

func (e *Error) Error() string {
	if e.Pid > 0 {
		return fmt.Sprintf("spawn %s: %s (pid %d): %v", e.Kind, e.Op, e.Pid, e.Err)
	}
	return fmt.Sprintf("spawn %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Forked reports whether a child process existed when the error occurred.
func (e *Error) Forked() bool {
	return e.Pid > 0
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
