package popen

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"

	"github.com/vertti/cpopen/pkg/spawn"
)

// Cmd describes a child to start. Fields mirror spawn.Request; the
// streams are expressed as Stdio modes instead of raw descriptor pairs.
type Cmd struct {
	Args []string
	Dir  string
	Env  []string // nil inherits the caller's environment

	CloseFDs       bool
	DeathSignal    syscall.Signal
	Umask          *int
	RestoreSigpipe bool
	Retries        int

	Stdin  Stdio
	Stdout Stdio
	Stderr Stdio

	// Logger receives debug records about spawn outcomes. Nil disables
	// logging.
	Logger *zap.Logger
}

// Command returns a Cmd for name with all three streams piped.
func Command(name string, args ...string) *Cmd {
	return &Cmd{
		Args:   append([]string{name}, args...),
		Stdin:  Pipe,
		Stdout: Pipe,
		Stderr: Pipe,
	}
}

// FromRequest wraps a decoded request. Any redirects in req are dropped and
// all streams are inherited; set the Stdio fields to change that.
func FromRequest(req *spawn.Request) *Cmd {
	return &Cmd{
		Args:           req.Args,
		Dir:            req.Dir,
		Env:            req.Env,
		CloseFDs:       req.CloseFDs,
		DeathSignal:    req.DeathSignal,
		Umask:          req.Umask,
		RestoreSigpipe: req.RestoreSigpipe,
		Retries:        req.TransientRetries,
	}
}

func (c *Cmd) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Start spawns the child. Descriptors popen created are closed on every
// failure path; descriptors passed with FD are never touched.
//
// When the child was created but failed before exec, Start reaps it and
// returns the *spawn.Error.
func (c *Cmd) Start() (*Process, error) {
	log := c.logger()

	var streams [3]*stream
	cleanup := func() {
		for _, s := range streams {
			if s != nil {
				s.closeAll()
			}
		}
	}
	for i, mode := range [3]Stdio{c.Stdin, c.Stdout, c.Stderr} {
		s, err := mode.open(i == 0)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("prepare %s: %w", streamName(i), err)
		}
		streams[i] = s
	}

	req := &spawn.Request{
		Args:             c.Args,
		Env:              c.Env,
		Dir:              c.Dir,
		Stdin:            streams[0].redirect(),
		Stdout:           streams[1].redirect(),
		Stderr:           streams[2].redirect(),
		CloseFDs:         c.CloseFDs,
		DeathSignal:      c.DeathSignal,
		Umask:            c.Umask,
		RestoreSigpipe:   c.RestoreSigpipe,
		TransientRetries: c.Retries,
	}

	res, err := spawn.Spawn(req)
	if err != nil {
		cleanup()
		var se *spawn.Error
		if errors.As(err, &se) {
			log.Debug("spawn failed",
				zap.Strings("args", c.Args),
				zap.Stringer("kind", se.Kind),
				zap.String("op", se.Op),
				zap.Int("pid", se.Pid),
				zap.Error(se.Err))
			if se.Forked() {
				reap(se.Pid)
			}
		}
		return nil, err
	}

	for i, s := range streams {
		if err := s.closeChild(); err != nil {
			log.Warn("close child end", zap.String("stream", streamName(i)), zap.Error(err))
		}
	}

	proc, err := os.FindProcess(res.Pid)
	if err != nil {
		// Not reachable on Unix, where FindProcess always succeeds.
		cleanup()
		return nil, fmt.Errorf("find process %d: %w", res.Pid, err)
	}

	p := newProcess(c.Args, proc, log)
	p.Stdin, p.Stdout, p.Stderr = streams[0].parent, streams[1].parent, streams[2].parent
	log.Debug("spawned",
		zap.Strings("args", c.Args),
		zap.Int("pid", res.Pid),
		zap.Bool("close_fds", c.CloseFDs),
		zap.Int("death_signal", int(c.DeathSignal)))
	return p, nil
}

// reap collects a child that failed before exec so it does not linger as
// a zombie.
func reap(pid int) {
	if proc, err := os.FindProcess(pid); err == nil {
		_, _ = proc.Wait()
	}
}

func streamName(i int) string {
	return [...]string{"stdin", "stdout", "stderr"}[i]
}
