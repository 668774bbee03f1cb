package spawn

import (
	"encoding/binary"
	"errors"
	"io"
	"syscall"
)

// stage identifies the child step that wrote a final failure.
type stage int32

const (
	stageDescriptors stage = iota + 1
	stageChdir
	stageSignals
	stageExec
)

// Message sizes on the error channel. Both are below PIPE_BUF, so each
// message arrives in one piece or not at all.
const (
	deathSignalMsgSize = 4 // int32 errno
	finalMsgSize       = 8 // int32 stage, int32 errno
)

func (s stage) kind() Kind {
	if s == stageExec {
		return KindExec
	}
	return KindChildSetup
}

func (s stage) op() string {
	switch s {
	case stageDescriptors:
		return "dup3"
	case stageChdir:
		return "chdir"
	case stageSignals:
		return "rt_sigaction"
	case stageExec:
		return "execve"
	default:
		return "unknown stage"
	}
}

// errorChannel is the parent's view of the read end.
type errorChannel struct {
	r   io.Reader
	pid int
}

// readDeathSignalResult consumes the registration outcome. Anything short
// of a full message, including end-of-file, is a protocol error.
func (c errorChannel) readDeathSignalResult() error {
	var buf [deathSignalMsgSize]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return c.protocolError(err)
	}
	if code := syscall.Errno(binary.NativeEndian.Uint32(buf[:])); code != 0 {
		return &Error{Kind: KindDeathSignal, Op: "prctl", Pid: c.pid, Err: code}
	}
	return nil
}

// readFinal returns nil when the channel closes without data, which happens
// only when exec succeeded and closed the child's write end.
func (c errorChannel) readFinal() error {
	var buf [finalMsgSize]byte
	_, err := io.ReadFull(c.r, buf[:])
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return c.protocolError(err)
	}
	st := stage(binary.NativeEndian.Uint32(buf[:4]))
	code := syscall.Errno(binary.NativeEndian.Uint32(buf[4:]))
	if code == 0 {
		// A zero errno is never a valid failure and never success either.
		return &Error{Kind: KindProtocol, Op: st.op(), Pid: c.pid, Err: syscall.EIO}
	}
	return &Error{Kind: st.kind(), Op: st.op(), Pid: c.pid, Err: code}
}

func (c errorChannel) protocolError(err error) error {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		errno = syscall.EIO
	}
	return &Error{Kind: KindProtocol, Op: "read", Pid: c.pid, Err: errno}
}
