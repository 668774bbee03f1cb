package spawncheck

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/vertti/cpopen/pkg/popen"
)

// Outcome is what a finished child produced.
type Outcome struct {
	Pid      int
	ExitCode int            // shell convention: 128+n when killed by signal n
	Signal   syscall.Signal // 0 when the child exited on its own
	Stdout   string
	Stderr   string
}

// Runner abstracts spawning for testability.
type Runner interface {
	Run(ctx context.Context, c *popen.Cmd, input []byte) (Outcome, error)
}

// DefaultWaitDelay is how long output is still drained after a timed-out
// child was killed.
const DefaultWaitDelay = 100 * time.Millisecond

// RealRunner spawns through popen with stdout and stderr captured. Stdin
// is fed from input, or /dev/null when input is nil.
type RealRunner struct {
	// WaitDelay bounds the drain after a kill. Descendants of the child
	// may hold the pipes open; once the delay passes the pipes are closed
	// and whatever was read so far is returned. Zero uses DefaultWaitDelay.
	WaitDelay time.Duration
}

func (r *RealRunner) waitDelay() time.Duration {
	if r.WaitDelay <= 0 {
		return DefaultWaitDelay
	}
	return r.WaitDelay
}

// Run starts c and kills it when ctx is done before it exits.
func (r *RealRunner) Run(ctx context.Context, c *popen.Cmd, input []byte) (Outcome, error) {
	cc := *c
	cc.Stdout, cc.Stderr = popen.Pipe, popen.Pipe
	cc.Stdin = popen.DevNull
	if input != nil {
		cc.Stdin = popen.Pipe
	}

	p, err := cc.Start()
	if err != nil {
		return Outcome{}, err
	}

	type captured struct {
		stdout, stderr []byte
		err            error
	}
	done := make(chan captured, 1)
	go func() {
		out, errOut, err := p.Communicate(input)
		done <- captured{out, errOut, err}
	}()

	var res captured
	select {
	case res = <-done:
	case <-ctx.Done():
		_ = p.Kill()
		timer := time.NewTimer(r.waitDelay())
		select {
		case res = <-done:
		case <-timer.C:
			_ = p.Close()
			res = <-done
		}
		timer.Stop()
		if res.err == nil {
			res.err = ctx.Err()
		}
	}

	o := Outcome{Pid: p.Pid, Stdout: string(res.stdout), Stderr: string(res.stderr)}
	ps, waitErr := p.Wait()
	if ps != nil {
		o.ExitCode = ps.ExitCode()
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			o.Signal = ws.Signal()
			o.ExitCode = 128 + int(o.Signal)
		}
	}
	if res.err != nil && !errors.Is(res.err, os.ErrClosed) {
		return o, res.err
	}
	return o, waitErr
}

// MockRunner is a test double for Runner.
type MockRunner struct {
	RunFunc func(ctx context.Context, c *popen.Cmd, input []byte) (Outcome, error)
}

// Run calls the mock function.
func (m *MockRunner) Run(ctx context.Context, c *popen.Cmd, input []byte) (Outcome, error) {
	return m.RunFunc(ctx, c, input)
}
