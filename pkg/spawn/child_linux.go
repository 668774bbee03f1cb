//go:build linux && (386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package spawn

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// childFailureStatus is the exit status of a child that could not exec.
const childFailureStatus = 255

// sigsetSize is the kernel sigset_t size passed to rt_sigaction.
const sigsetSize = 8

// childPlan is everything the child reads after fork. It is filled in
// before the fork so the child never allocates.
type childPlan struct {
	*argvBlock

	stdio    [3]Redirect
	closeFDs bool
	procFD   *byte  // "/proc/self/fd"
	dirents  []byte // getdents64 buffer, only when closeFDs

	deathSignal    int
	ppid           int
	umask          int // -1 leaves the umask alone
	restoreSigpipe bool
	retries        int

	// sigdfl is a zeroed kernel sigaction: SIG_DFL, no flags, empty mask.
	sigdfl [4]uint64
}

// forkAndExecInChild forks. In the parent it returns the child pid or the
// fork errno; the caller must then call runtimeAfterFork. In the child it
// never returns.
//
// The parent must leave this frame immediately after the fork: the child
// keeps running in a copy of it.
//
//go:noinline
//go:norace
//go:nocheckptr
func forkAndExecInChild(p *childPlan, rfd, wfd int) (pid int, errno syscall.Errno) {
	var (
		r1   uintptr
		err1 syscall.Errno
	)

	// No allocation and no calls except raw system calls and nosplit
	// functions from here on.
	runtimeBeforeFork()
	r1, _, err1 = syscall.RawSyscall6(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		return int(r1), err1
	}

	runtimeAfterForkInChild()

	// The read end belongs to the parent. Drop it first so that a low
	// number cannot be mistaken for a standard slot below.
	syscall.RawSyscall(unix.SYS_CLOSE, uintptr(rfd), 0, 0)

	pipe := wfd
	if pipe < 3 {
		r1, _, err1 = syscall.RawSyscall(unix.SYS_FCNTL, uintptr(pipe), unix.F_DUPFD_CLOEXEC, 3)
		if err1 != 0 {
			childExit(pipe, stageDescriptors, err1)
		}
		syscall.RawSyscall(unix.SYS_CLOSE, uintptr(pipe), 0, 0)
		pipe = int(r1)
	}

	for i := 0; i < 3; i++ {
		src := p.stdio[i].Child
		err1 = adoptDescriptor(src, i)
		if err1 == syscall.EBADF && (src == NoFD || src == i) {
			// Slot is closed in the parent; nothing to inherit.
			err1 = 0
		}
		if err1 != 0 {
			childExit(pipe, stageDescriptors, err1)
		}
	}
	for i := 0; i < 3; i++ {
		closeAbove2(p.stdio[i].Child, pipe)
		closeAbove2(p.stdio[i].Parent, pipe)
	}

	if p.deathSignal != 0 {
		_, _, err1 = syscall.RawSyscall(unix.SYS_PRCTL, unix.PR_SET_PDEATHSIG, uintptr(p.deathSignal), 0)
		if !childReport(pipe, int32(err1)) || err1 != 0 {
			childExitStatus(childFailureStatus)
		}
		// The parent may have gone before the registration took effect.
		r1, _, _ = syscall.RawSyscall(unix.SYS_GETPPID, 0, 0, 0)
		if int(r1) != p.ppid {
			self, _, _ := syscall.RawSyscall(unix.SYS_GETPID, 0, 0, 0)
			syscall.RawSyscall(unix.SYS_KILL, self, uintptr(p.deathSignal), 0)
		}
	}

	if p.closeFDs {
		closeInheritedDescriptors(p.procFD, p.dirents, pipe)
	}

	if p.dir != nil {
		_, _, err1 = syscall.RawSyscall(unix.SYS_CHDIR, uintptr(unsafe.Pointer(p.dir)), 0, 0)
		if err1 != 0 {
			childExit(pipe, stageChdir, err1)
		}
	}

	if p.umask >= 0 {
		syscall.RawSyscall(unix.SYS_UMASK, uintptr(p.umask), 0, 0)
	}

	if p.restoreSigpipe {
		_, _, err1 = syscall.RawSyscall6(unix.SYS_RT_SIGACTION, uintptr(unix.SIGPIPE),
			uintptr(unsafe.Pointer(&p.sigdfl[0])), 0, sigsetSize, 0, 0)
		if err1 != 0 {
			childExit(pipe, stageSignals, err1)
		}
	}

	// Same search rules as execvp: keep looking past missing entries,
	// remember permission failures, stop on anything else.
	eacces := false
	for i := 0; i < len(p.paths); i++ {
		for attempt := 0; ; attempt++ {
			_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE,
				uintptr(unsafe.Pointer(p.paths[i])),
				uintptr(unsafe.Pointer(&p.argv[0])),
				uintptr(unsafe.Pointer(&p.envv[0])))
			if !transient(err1) || (p.retries > 0 && attempt >= p.retries) {
				break
			}
		}
		switch err1 {
		case syscall.EACCES:
			eacces = true
		case syscall.ENOENT, syscall.ENOTDIR, syscall.ESTALE, syscall.ENODEV, syscall.ETIMEDOUT:
		default:
			childExit(pipe, stageExec, err1)
		}
	}
	if eacces {
		err1 = syscall.EACCES
	}
	childExit(pipe, stageExec, err1)
	return 0, 0
}

// childReport writes a death-signal result.
//
//go:nosplit
//go:norace
func childReport(pipe int, code int32) bool {
	n, _, err := syscall.RawSyscall(unix.SYS_WRITE, uintptr(pipe), uintptr(unsafe.Pointer(&code)), deathSignalMsgSize)
	return err == 0 && n == deathSignalMsgSize
}

// childExit writes a final failure and terminates. If the write itself
// fails the errno of the write becomes the exit status.
//
//go:nosplit
//go:norace
func childExit(pipe int, st stage, errno syscall.Errno) {
	msg := [2]int32{int32(st), int32(errno)}
	_, _, err := syscall.RawSyscall(unix.SYS_WRITE, uintptr(pipe), uintptr(unsafe.Pointer(&msg[0])), finalMsgSize)
	if err != 0 {
		childExitStatus(int(err))
	}
	childExitStatus(childFailureStatus)
}

//go:nosplit
//go:norace
func childExitStatus(status int) {
	for {
		syscall.RawSyscall(unix.SYS_EXIT_GROUP, uintptr(status), 0, 0)
	}
}
