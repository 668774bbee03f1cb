//go:build linux && (386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package spawn

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Everything in this file runs in the forked child. Functions must be
// nosplit and may only issue raw system calls.

// linux_dirent64 field offsets.
const (
	direntReclenOff = 16
	direntNameOff   = 19
)

// adoptDescriptor makes source available as slot across exec.
//
// When there is nothing to duplicate, because source is NoFD or already is
// slot, the close-on-exec flag on slot is cleared instead: dup3 would not
// run and a close-on-exec slot would silently vanish at exec.
//
//go:nosplit
//go:norace
func adoptDescriptor(source, slot int) syscall.Errno {
	if source == NoFD || source == slot {
		flags, _, err := syscall.RawSyscall(unix.SYS_FCNTL, uintptr(slot), unix.F_GETFD, 0)
		if err != 0 {
			return err
		}
		_, _, err = syscall.RawSyscall(unix.SYS_FCNTL, uintptr(slot), unix.F_SETFD, flags&^unix.FD_CLOEXEC)
		return err
	}
	_, _, err := syscall.RawSyscall(unix.SYS_DUP3, uintptr(source), uintptr(slot), 0)
	return err
}

// closeAbove2 closes fd unless it is a standard slot, a sentinel or keep.
//
//go:nosplit
//go:norace
func closeAbove2(fd, keep int) {
	if fd > 2 && fd != keep {
		syscall.RawSyscall(unix.SYS_CLOSE, uintptr(fd), 0, 0)
	}
}

// closeInheritedDescriptors closes every descriptor above 2 except
// preserve, listing them from procDir (/proc/self/fd) into buf. Without
// procfs it falls back to close_range around preserve.
//
//go:nosplit
//go:norace
//go:nocheckptr
func closeInheritedDescriptors(procDir *byte, buf []byte, preserve int) {
	fdcwd := unix.AT_FDCWD
	dfd, _, err := syscall.RawSyscall6(unix.SYS_OPENAT, uintptr(fdcwd), uintptr(unsafe.Pointer(procDir)),
		uintptr(unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC), 0, 0, 0)
	if err != 0 {
		closeRangeAround(preserve)
		return
	}
	for {
		n, _, err := syscall.RawSyscall(unix.SYS_GETDENTS64, dfd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		if err == syscall.EINTR {
			continue
		}
		if err != 0 || n == 0 {
			break
		}
		for off := 0; off < int(n); {
			reclen := int(*(*uint16)(unsafe.Pointer(&buf[off+direntReclenOff])))
			if reclen == 0 {
				break
			}
			fd, ok := parseFD(buf[off+direntNameOff : off+reclen])
			off += reclen
			if ok && fd != int(dfd) {
				closeAbove2(fd, preserve)
			}
		}
	}
	syscall.RawSyscall(unix.SYS_CLOSE, dfd, 0, 0)
}

//go:nosplit
//go:norace
func closeRangeAround(preserve int) {
	if preserve > 3 {
		syscall.RawSyscall(unix.SYS_CLOSE_RANGE, 3, uintptr(preserve-1), 0)
	}
	syscall.RawSyscall(unix.SYS_CLOSE_RANGE, uintptr(preserve+1), ^uintptr(0), 0)
}

// parseFD reads a NUL-terminated decimal directory entry name.
//
//go:nosplit
//go:norace
func parseFD(name []byte) (int, bool) {
	fd := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == 0 {
			return fd, i > 0
		}
		if c < '0' || c > '9' {
			return 0, false
		}
		fd = fd*10 + int(c-'0')
	}
	return fd, len(name) > 0
}

//go:nosplit
//go:norace
func transient(err syscall.Errno) bool {
	return err == syscall.EINTR || err == syscall.EAGAIN
}
