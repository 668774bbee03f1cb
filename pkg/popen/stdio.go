package popen

import (
	"fmt"
	"os"

	"github.com/vertti/cpopen/pkg/spawn"
)

type stdioKind int

const (
	stdioInherit stdioKind = iota
	stdioPipe
	stdioFD
	stdioDevNull
)

// Stdio selects what one standard stream of the child is connected to.
// The zero value inherits the stream.
type Stdio struct {
	kind stdioKind
	fd   int
}

var (
	// Inherit leaves the stream as the caller has it.
	Inherit = Stdio{kind: stdioInherit}
	// Pipe connects the stream to a new pipe. The parent end is exposed on
	// the Process.
	Pipe = Stdio{kind: stdioPipe}
	// DevNull connects the stream to /dev/null.
	DevNull = Stdio{kind: stdioDevNull}
)

// FD connects the stream to a descriptor the caller owns. popen never
// closes it. Descriptor 0 inherits the stream, as in spawn.Redirect.
func FD(fd int) Stdio {
	return Stdio{kind: stdioFD, fd: fd}
}

func (s Stdio) String() string {
	switch s.kind {
	case stdioInherit:
		return "inherit"
	case stdioPipe:
		return "pipe"
	case stdioFD:
		return fmt.Sprintf("fd(%d)", s.fd)
	case stdioDevNull:
		return "devnull"
	default:
		return "unknown"
	}
}

// stream is one prepared standard stream. child and parent are files popen
// created and must close; fd is a caller-owned descriptor.
type stream struct {
	child  *os.File
	parent *os.File
	fd     int
}

func (s *stream) redirect() spawn.Redirect {
	rd := spawn.Inherit
	switch {
	case s.child != nil:
		rd.Child = int(s.child.Fd())
	case s.fd >= 0:
		rd.Child = s.fd
	}
	if s.parent != nil {
		rd.Parent = rawFD(s.parent)
	}
	return rd
}

// rawFD returns the descriptor of f without the switch to blocking mode
// that Fd makes, so reads on f can still be interrupted by Close.
func rawFD(f *os.File) int {
	fd := spawn.NoFD
	rc, err := f.SyscallConn()
	if err != nil {
		return fd
	}
	_ = rc.Control(func(u uintptr) { fd = int(u) })
	return fd
}

// closeChild drops the child's end in the parent once the child has it.
func (s *stream) closeChild() error {
	if s.child == nil {
		return nil
	}
	err := s.child.Close()
	s.child = nil
	return err
}

func (s *stream) closeAll() {
	_ = s.closeChild()
	if s.parent != nil {
		_ = s.parent.Close()
		s.parent = nil
	}
}

// open prepares s for slot. input is true for stdin, where the child reads.
func (s Stdio) open(input bool) (*stream, error) {
	st := &stream{fd: spawn.NoFD}
	switch s.kind {
	case stdioInherit:
	case stdioFD:
		if s.fd < 0 {
			return nil, fmt.Errorf("%w: negative descriptor %d", spawn.ErrInvalidArgument, s.fd)
		}
		st.fd = s.fd
	case stdioDevNull:
		flag := os.O_WRONLY
		if input {
			flag = os.O_RDONLY
		}
		f, err := os.OpenFile(os.DevNull, flag, 0)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", os.DevNull, err)
		}
		st.child = f
	case stdioPipe:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create pipe: %w", err)
		}
		if input {
			st.child, st.parent = r, w
		} else {
			st.child, st.parent = w, r
		}
	default:
		return nil, fmt.Errorf("%w: unknown stdio mode %d", spawn.ErrInvalidArgument, s.kind)
	}
	return st, nil
}
