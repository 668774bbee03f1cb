//go:build linux && (386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package spawn

import (
	"errors"
	"io"
	"os"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	procSelfFD  = "/proc/self/fd"
	direntsSize = 4096
)

func spawn(req *Request) (*Result, error) {
	plan, err := newChildPlan(req)
	if err != nil {
		return nil, err
	}

	// Hold ForkLock so no other goroutine creates a descriptor without
	// close-on-exec while the child is being cloned.
	var p [2]int
	syscall.ForkLock.Lock()
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		syscall.ForkLock.Unlock()
		return nil, &Error{Kind: KindResource, Op: "pipe2", Err: errnoOf(err)}
	}
	pid, errno := forkExec(plan, p[0], p[1])
	// Without this close the read below would never see end-of-file.
	_ = unix.Close(p[1])
	syscall.ForkLock.Unlock()
	runtime.KeepAlive(plan)
	defer unix.Close(p[0])

	if errno != 0 {
		return nil, &Error{Kind: KindFork, Op: "clone", Err: errno}
	}

	ch := errorChannel{r: fdReader(p[0]), pid: pid}
	if plan.deathSignal != 0 {
		if err := ch.readDeathSignalResult(); err != nil {
			return nil, err
		}
	}
	if err := ch.readFinal(); err != nil {
		return nil, err
	}
	return req.result(pid), nil
}

// forkExec forks, retrying transient failures.
func forkExec(p *childPlan, rfd, wfd int) (int, syscall.Errno) {
	for attempt := 0; ; attempt++ {
		pid, errno := forkAndExecInChild(p, rfd, wfd)
		runtimeAfterFork()
		if !transient(errno) || (p.retries > 0 && attempt >= p.retries) {
			return pid, errno
		}
	}
}

func newChildPlan(req *Request) (*childPlan, error) {
	block, err := marshal(req)
	if err != nil {
		return nil, err
	}
	procFD, err := syscall.BytePtrFromString(procSelfFD)
	if err != nil {
		return nil, err
	}
	p := &childPlan{
		argvBlock:      block,
		stdio:          req.redirects(),
		closeFDs:       req.CloseFDs,
		procFD:         procFD,
		deathSignal:    int(req.DeathSignal),
		ppid:           os.Getpid(),
		umask:          req.umask(),
		restoreSigpipe: req.RestoreSigpipe,
		retries:        req.TransientRetries,
	}
	if p.closeFDs {
		p.dirents = make([]byte, direntsSize)
	}
	return p, nil
}

// fdReader reads the error channel, retrying interrupted reads.
type fdReader int

func (r fdReader) Read(b []byte) (int, error) {
	for {
		n, err := unix.Read(int(r), b)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
