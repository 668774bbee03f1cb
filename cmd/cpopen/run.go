package main

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/vertti/cpopen/pkg/popen"
	"github.com/vertti/cpopen/pkg/request"
	"github.com/vertti/cpopen/pkg/spawn"
)

// exitError makes the process exit with code, printing err first if set.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Exit codes for spawn failures, following the shell convention.
const (
	exitNotFound  = 127
	exitNoExec    = 126
	exitSpawnFail = 125
)

// spawnExitError picks an exit code for a failed spawn. Only a failed
// exec says anything about the program; a chdir or dup failure in the
// child is a spawn failure like any other.
func spawnExitError(err error) error {
	var se *spawn.Error
	if !errors.As(err, &se) || se.Kind != spawn.KindExec {
		return &exitError{code: exitSpawnFail, err: err}
	}
	switch se.Err {
	case syscall.ENOENT, syscall.ENOTDIR:
		return &exitError{code: exitNotFound, err: err}
	case syscall.EACCES, syscall.ENOEXEC:
		return &exitError{code: exitNoExec, err: err}
	default:
		return &exitError{code: exitSpawnFail, err: err}
	}
}

// spawnFlags are the options shared by run and check.
type spawnFlags struct {
	cwd            string
	env            []string
	closeFDs       bool
	deathSignal    string
	umask          string
	restoreSigpipe bool
	retries        int
	requestFile    string
}

func (f *spawnFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.cwd, "cwd", "", "working directory of the child")
	fs.StringArrayVar(&f.env, "env", nil, "KEY=VALUE for the child; when given the environment is not inherited (repeatable)")
	fs.BoolVar(&f.closeFDs, "close-fds", false, "close every inherited descriptor above 2")
	fs.StringVar(&f.deathSignal, "death-signal", "", "signal the child receives when cpopen dies (name or number)")
	fs.StringVar(&f.umask, "umask", "", "octal umask for the child")
	fs.BoolVar(&f.restoreSigpipe, "restore-sigpipe", false, "reset SIGPIPE to its default action in the child")
	fs.IntVar(&f.retries, "retries", 0, "retries for interrupted fork/exec (0 retries forever)")
	fs.StringVar(&f.requestFile, "request", "", "JSON request file describing the child")
	fs.SetInterspersed(false)
}

// buildCmd layers the sources of a spawn: CPOPEN_* defaults, then a
// request file, then flags given on the command line.
func (f *spawnFlags) buildCmd(fs *pflag.FlagSet, args []string) (*popen.Cmd, error) {
	c, err := defaultsCmd()
	if err != nil {
		return nil, err
	}

	switch {
	case f.requestFile != "" && len(args) > 0:
		return nil, errors.New("--request and a command line are mutually exclusive")
	case f.requestFile != "":
		req, err := request.ParseFile(f.requestFile)
		if err != nil {
			return nil, err
		}
		c = popen.FromRequest(req)
	case len(args) == 0:
		return nil, errors.New("no program given; use -- program [args...] or --request")
	default:
		c.Args = args
	}

	if fs.Changed("cwd") {
		c.Dir = f.cwd
	}
	if fs.Changed("env") {
		c.Env = append([]string{}, f.env...)
	}
	if fs.Changed("close-fds") {
		c.CloseFDs = f.closeFDs
	}
	if fs.Changed("restore-sigpipe") {
		c.RestoreSigpipe = f.restoreSigpipe
	}
	if fs.Changed("retries") {
		if f.retries < 0 {
			return nil, errors.New("--retries must not be negative")
		}
		c.Retries = f.retries
	}
	if fs.Changed("death-signal") {
		if c.DeathSignal, err = request.ParseSignal(f.deathSignal); err != nil {
			return nil, fmt.Errorf("invalid --death-signal: %w", err)
		}
	}
	if fs.Changed("umask") {
		mask, err := request.ParseUmask(f.umask)
		if err != nil {
			return nil, fmt.Errorf("invalid --umask: %w", err)
		}
		c.Umask = &mask
	}

	c.Logger = logger.Logger
	return c, nil
}

func defaultsCmd() (*popen.Cmd, error) {
	c := &popen.Cmd{
		CloseFDs:       cfg.CloseFDs,
		RestoreSigpipe: cfg.RestoreSigpipe,
		Retries:        cfg.Retries,
	}
	if cfg.DeathSignal != "" {
		sig, err := request.ParseSignal(cfg.DeathSignal)
		if err != nil {
			return nil, fmt.Errorf("invalid CPOPEN_DEATH_SIGNAL: %w", err)
		}
		c.DeathSignal = sig
	}
	if cfg.Umask != "" {
		mask, err := request.ParseUmask(cfg.Umask)
		if err != nil {
			return nil, fmt.Errorf("invalid CPOPEN_UMASK: %w", err)
		}
		c.Umask = &mask
	}
	return c, nil
}
