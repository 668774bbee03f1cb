// Package exec runs a child in the foreground of the cpopen command:
// start, forward termination signals, wait, report a shell-style exit code.
package exec

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vertti/cpopen/pkg/popen"
)

// Runner runs a command to completion.
type Runner interface {
	// Run starts c, waits for it and returns its exit code. A child killed
	// by a signal reports 128 plus the signal number.
	Run(c *popen.Cmd) (int, error)
}

// RealRunner is the production implementation.
type RealRunner struct {
	Logger *zap.Logger
}

// Run implements Runner. Signals in forwardedSignals that reach cpopen
// while the child runs are passed on to it, except terminal-generated
// ones the child already received as a member of the foreground process
// group.
func (r *RealRunner) Run(c *popen.Cmd) (int, error) {
	sigs := make(chan os.Signal, len(forwardedSignals))
	signal.Notify(sigs, forwardedSignals...)
	defer signal.Stop(sigs)

	p, err := c.Start()
	if err != nil {
		return -1, err
	}

	go forward(p, sigs, r.logger())

	ps, err := p.Wait()
	if err != nil {
		return -1, err
	}
	return ExitCode(ps), nil
}

func (r *RealRunner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func forward(p *popen.Process, sigs <-chan os.Signal, log *zap.Logger) {
	for {
		select {
		case sig := <-sigs:
			if fromTerminal(sig) {
				log.Debug("signal delivered by terminal", zap.Stringer("signal", sig))
				continue
			}
			if err := p.Signal(sig); err != nil {
				log.Debug("forward signal", zap.Stringer("signal", sig), zap.Error(err))
			}
		case <-p.Done():
			return
		}
	}
}

// ExitCode converts a wait result to a shell exit code.
func ExitCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ps.ExitCode()
}
