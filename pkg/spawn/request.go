package spawn

import (
	"strings"
	"syscall"
)

// NoFD marks an unused side of a Redirect.
const NoFD = -1

// maxSignal is the highest signal number Linux accepts for PR_SET_PDEATHSIG.
const maxSignal = 64

// Redirect connects one standard stream of the child.
//
// Child is duplicated onto the stream's slot (0, 1 or 2) in the child.
// Parent is the opposite end kept by the caller; the child closes its copy.
// Either side may be NoFD. Descriptor 0 is treated as NoFD so that the zero
// Redirect inherits the stream.
type Redirect struct {
	Child  int
	Parent int
}

func (rd Redirect) normalize() Redirect {
	if rd.Child == 0 {
		rd.Child = NoFD
	}
	if rd.Parent == 0 {
		rd.Parent = NoFD
	}
	return rd
}

// Inherit leaves a standard stream as the caller has it.
var Inherit = Redirect{Child: NoFD, Parent: NoFD}

// Request describes one child process.
type Request struct {
	// Args is the program followed by its arguments. Args[0] is resolved
	// against PATH when it contains no slash.
	Args []string

	// Env replaces the environment when non-nil. Entries are KEY=VALUE.
	Env []string

	// Dir is the working directory of the child. Empty keeps the caller's.
	Dir string

	Stdin  Redirect
	Stdout Redirect
	Stderr Redirect

	// CloseFDs closes every inherited descriptor above 2 before exec.
	CloseFDs bool

	// DeathSignal is delivered to the child when the spawning thread dies.
	DeathSignal syscall.Signal

	// Umask is applied in the child when non-nil and not negative.
	Umask *int

	// RestoreSigpipe resets SIGPIPE to its default disposition.
	RestoreSigpipe bool

	// TransientRetries bounds retries of fork and exec on EINTR/EAGAIN.
	// Zero retries forever.
	TransientRetries int
}

// Result is a started child.
type Result struct {
	Pid int

	// Parent-side ends of the three redirects, NoFD when not supplied.
	Stdin  int
	Stdout int
	Stderr int
}

// Validate checks the request shape without touching the system.
func (r *Request) Validate() error {
	if r == nil {
		return invalidf("nil request")
	}
	if len(r.Args) == 0 {
		return invalidf("command must not be empty")
	}
	if r.Args[0] == "" {
		return invalidf("program name must not be empty")
	}
	for i, a := range r.Args {
		if strings.IndexByte(a, 0) >= 0 {
			return invalidf("argument %d contains a NUL byte", i)
		}
	}
	for i, e := range r.Env {
		if strings.IndexByte(e, 0) >= 0 {
			return invalidf("environment entry %d contains a NUL byte", i)
		}
		if k, _, ok := strings.Cut(e, "="); !ok || k == "" {
			return invalidf("environment entry %d is not KEY=VALUE: %q", i, e)
		}
	}
	if strings.IndexByte(r.Dir, 0) >= 0 {
		return invalidf("working directory contains a NUL byte")
	}
	for i, rd := range r.redirects() {
		if rd.Child < NoFD || rd.Parent < NoFD {
			return invalidf("%s redirect has a negative descriptor: %+v", streamNames[i], rd)
		}
	}
	if r.DeathSignal < 0 || r.DeathSignal > maxSignal {
		return invalidf("death signal %d out of range", int(r.DeathSignal))
	}
	if r.TransientRetries < 0 {
		return invalidf("transient retries must not be negative")
	}
	return nil
}

var streamNames = [3]string{"stdin", "stdout", "stderr"}

func (r *Request) redirects() [3]Redirect {
	return [3]Redirect{r.Stdin.normalize(), r.Stdout.normalize(), r.Stderr.normalize()}
}

// umask returns the mask to apply, or -1 to leave it alone.
// A malformed mask is ignored rather than rejected.
func (r *Request) umask() int {
	if r.Umask == nil || *r.Umask < 0 {
		return -1
	}
	return *r.Umask & 0o777
}

func (r *Request) result(pid int) *Result {
	rds := r.redirects()
	return &Result{
		Pid:    pid,
		Stdin:  rds[0].Parent,
		Stdout: rds[1].Parent,
		Stderr: rds[2].Parent,
	}
}
