package popen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// State represents the state of a process.
type State int32

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is running or has not been waited for.
	StateRunning
	// StateExited indicates the process exited on its own.
	StateExited
	// StateKilled indicates the process was terminated by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Sentinel errors for the popen package.
var (
	// ErrNotRunning is returned when signalling a process that was reaped.
	ErrNotRunning = errors.New("process not running")
)

// Process is a started child. It is safe for concurrent use.
type Process struct {
	Pid  int
	Args []string

	// Parent ends of piped streams. Nil when the stream was not piped.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	proc *os.Process
	log  *zap.Logger

	state    *atomic.Int32
	exitCode *atomic.Int32
	done     chan struct{}

	waitOnce sync.Once
	ps       *os.ProcessState
	waitErr  error
}

func newProcess(args []string, proc *os.Process, log *zap.Logger) *Process {
	return &Process{
		Pid:      proc.Pid,
		Args:     args,
		proc:     proc,
		log:      log,
		state:    atomic.NewInt32(int32(StateRunning)),
		exitCode: atomic.NewInt32(-1),
		done:     make(chan struct{}),
	}
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns the exit status, -1 while running or when the process
// was killed by a signal.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// Done is closed once the process has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait reaps the process and closes its stdin pipe. It is safe to call
// more than once; later calls return the first result.
func (p *Process) Wait() (*os.ProcessState, error) {
	p.waitOnce.Do(func() {
		if p.Stdin != nil {
			_ = p.Stdin.Close()
		}
		p.ps, p.waitErr = p.proc.Wait()
		if p.waitErr != nil {
			p.waitErr = fmt.Errorf("wait for pid %d: %w", p.Pid, p.waitErr)
		}

		state := StateExited
		if p.ps != nil {
			p.exitCode.Store(int32(p.ps.ExitCode()))
			if ws, ok := p.ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				state = StateKilled
			}
		}
		p.state.Store(int32(state))
		close(p.done)

		p.log.Debug("process exited",
			zap.Int("pid", p.Pid),
			zap.Stringer("state", state),
			zap.Int("exit_code", p.ExitCode()))
	})
	return p.ps, p.waitErr
}

// Signal sends sig to the process.
func (p *Process) Signal(sig os.Signal) error {
	if p.State() != StateRunning {
		return ErrNotRunning
	}
	if err := p.proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return ErrNotRunning
		}
		return fmt.Errorf("signal pid %d: %w", p.Pid, err)
	}
	return nil
}

// Kill sends SIGKILL to the process.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// Terminate sends SIGTERM to the process.
func (p *Process) Terminate() error {
	return p.Signal(syscall.SIGTERM)
}

// Communicate writes input to stdin, closes it, reads stdout and stderr to
// end-of-file and waits for the process. Streams that were not piped are
// skipped. A non-zero exit is not an error; check ExitCode or State.
func (p *Process) Communicate(input []byte) (stdout, stderr []byte, err error) {
	var (
		wg                sync.WaitGroup
		outBuf, errBuf    bytes.Buffer
		inErr, outE, errE error
	)
	if p.Stdin != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if len(input) > 0 {
				_, inErr = p.Stdin.Write(input)
				if errors.Is(inErr, syscall.EPIPE) {
					// The child stopped reading; its output still matters.
					inErr = nil
				}
			}
			inErr = multierr.Append(inErr, p.Stdin.Close())
		}()
	}
	if p.Stdout != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outE = io.Copy(&outBuf, p.Stdout)
		}()
	}
	if p.Stderr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errE = io.Copy(&errBuf, p.Stderr)
		}()
	}
	wg.Wait()

	_, waitErr := p.Wait()
	err = multierr.Combine(
		wrapStream("stdin", inErr),
		wrapStream("stdout", outE),
		wrapStream("stderr", errE),
		waitErr,
	)
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Close closes the parent ends of all piped streams. It does not stop the
// process.
func (p *Process) Close() error {
	var err error
	for _, f := range []*os.File{p.Stdin, p.Stdout, p.Stderr} {
		if f == nil {
			continue
		}
		if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}
	return err
}

func wrapStream(name string, err error) error {
	if err == nil || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
