// Package spawncheck spawns a command once and reports what happened as a
// check.Result.
package spawncheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vertti/cpopen/pkg/check"
	"github.com/vertti/cpopen/pkg/popen"
	"github.com/vertti/cpopen/pkg/request"
	"github.com/vertti/cpopen/pkg/spawn"
)

// DefaultTimeout bounds a check when Timeout is zero.
const DefaultTimeout = 30 * time.Second

var _ check.Checker = (*Check)(nil)

// Check spawns Cmd and verifies its exit status and output.
type Check struct {
	Cmd          *popen.Cmd
	Input        []byte        // written to stdin; nil connects stdin to /dev/null
	ExpectExit   int           // required exit code
	MatchPattern string        // regex stdout must match
	Timeout      time.Duration // default: DefaultTimeout
	Runner       Runner        // injected for testing
}

// Run executes the spawn check.
func (c *Check) Run() check.Result {
	result := check.Result{
		Name: fmt.Sprintf("spawn: %s", strings.Join(c.Cmd.Args, " ")),
	}

	re, err := check.CompileRegex(c.MatchPattern)
	if err != nil {
		return result.Fail(err.Error(), err)
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := c.Runner.Run(ctx, c.Cmd, c.Input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.AddDetailf("pid: %d", out.Pid)
			return result.Failf("timed out after %s", timeout)
		}
		var se *spawn.Error
		if errors.As(err, &se) {
			result.AddDetailf("stage: %s (%s)", se.Kind, se.Op)
			if se.Forked() {
				result.AddDetailf("pid: %d", se.Pid)
			}
		}
		return result.Failf("spawn failed: %w", err)
	}

	result.AddDetailf("pid: %d", out.Pid)
	if out.Signal != 0 {
		result.AddDetailf("signal: %s", request.SignalName(out.Signal))
	} else {
		result.AddDetailf("exit: %d", out.ExitCode)
	}
	if s := strings.TrimSpace(out.Stdout); s != "" {
		result.AddDetailf("stdout: %s", s)
	}
	if s := strings.TrimSpace(out.Stderr); s != "" {
		result.AddDetailf("stderr: %s", s)
	}

	if out.ExitCode != c.ExpectExit {
		return result.Failf("exit status %d, want %d", out.ExitCode, c.ExpectExit)
	}
	if re != nil && !re.MatchString(out.Stdout) {
		return result.Failf("stdout does not match pattern %q", c.MatchPattern)
	}

	return result.Pass()
}
