//go:build linux && (386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package popen

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vertti/cpopen/pkg/spawn"
)

func TestCommand_Defaults(t *testing.T) {
	c := Command("ls", "-l")

	assert.Equal(t, []string{"ls", "-l"}, c.Args)
	assert.Equal(t, Pipe, c.Stdin)
	assert.Equal(t, Pipe, c.Stdout)
	assert.Equal(t, Pipe, c.Stderr)
}

func TestFromRequest(t *testing.T) {
	mask := 0o022
	c := FromRequest(&spawn.Request{
		Args:             []string{"true"},
		Dir:              "/tmp",
		CloseFDs:         true,
		DeathSignal:      syscall.SIGTERM,
		Umask:            &mask,
		TransientRetries: 2,
	})

	assert.Equal(t, "/tmp", c.Dir)
	assert.True(t, c.CloseFDs)
	assert.Equal(t, syscall.SIGTERM, c.DeathSignal)
	assert.Equal(t, 2, c.Retries)
	assert.Equal(t, Inherit, c.Stdout)
}

func TestStdio_String(t *testing.T) {
	assert.Equal(t, "inherit", Inherit.String())
	assert.Equal(t, "pipe", Pipe.String())
	assert.Equal(t, "devnull", DevNull.String())
	assert.Equal(t, "fd(7)", FD(7).String())
}

func TestCommunicate(t *testing.T) {
	p, err := Command("sh", "-c", "cat; echo oops >&2").Start()
	require.NoError(t, err)

	out, errOut, err := p.Communicate([]byte("line one\nline two\n"))

	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(out))
	assert.Equal(t, "oops\n", string(errOut))
	assert.Equal(t, StateExited, p.State())
	assert.Equal(t, 0, p.ExitCode())
}

func TestCommunicate_ChildIgnoresInput(t *testing.T) {
	p, err := Command("true").Start()
	require.NoError(t, err)

	_, _, err = p.Communicate(make([]byte, 1<<20))

	require.NoError(t, err)
	assert.Equal(t, 0, p.ExitCode())
}

func TestExitCode(t *testing.T) {
	c := Command("sh", "-c", "exit 3")
	c.Stdin = DevNull

	p, err := c.Start()
	require.NoError(t, err)
	assert.Nil(t, p.Stdin)

	_, _, err = p.Communicate(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ExitCode())
	assert.Equal(t, StateExited, p.State())
}

func TestKill(t *testing.T) {
	c := Command("sleep", "30")
	c.Stdout = DevNull
	c.Stderr = DevNull
	p, err := c.Start()
	require.NoError(t, err)
	assert.Equal(t, StateRunning, p.State())

	require.NoError(t, p.Kill())
	ps, err := p.Wait()
	require.NoError(t, err)

	assert.Equal(t, StateKilled, p.State())
	assert.Equal(t, -1, ps.ExitCode())
	select {
	case <-p.Done():
	default:
		t.Error("Done not closed after Wait")
	}

	again, err := p.Wait()
	require.NoError(t, err)
	assert.Same(t, ps, again)

	assert.ErrorIs(t, p.Terminate(), ErrNotRunning)
}

func TestCallerDescriptorStaysOpen(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	c := Command("echo", "to file")
	c.Stdin = Inherit
	c.Stdout = FD(int(f.Fd()))
	c.Stderr = Inherit
	p, err := c.Start()
	require.NoError(t, err)
	assert.Nil(t, p.Stdout)

	_, err = p.Wait()
	require.NoError(t, err)

	_, err = f.WriteString("after\n")
	require.NoError(t, err, "caller descriptor was closed")
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "to file\nafter\n", string(data))
}

func TestStart_Failure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := Command("cpopen-test-no-such-program")
	c.Logger = zap.New(core)

	p, err := c.Start()

	assert.Nil(t, p)
	var se *spawn.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, spawn.KindExec, se.Kind)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// The failed child was reaped by Start.
	_, werr := syscall.Wait4(se.Pid, nil, syscall.WNOHANG, nil)
	assert.ErrorIs(t, werr, syscall.ECHILD)

	entries := logs.FilterMessage("spawn failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "execve", entries[0].ContextMap()["op"])
}

func TestStart_Invalid(t *testing.T) {
	c := &Cmd{Args: []string{"true"}, Stdout: FD(-3)}

	_, err := c.Start()

	assert.ErrorIs(t, err, spawn.ErrInvalidArgument)
}

func TestStart_LogsSpawn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := Command("true")
	c.Logger = zap.New(core)

	p, err := c.Start()
	require.NoError(t, err)
	_, _, err = p.Communicate(nil)
	require.NoError(t, err)

	spawned := logs.FilterMessage("spawned").All()
	require.Len(t, spawned, 1)
	assert.Equal(t, int64(p.Pid), spawned[0].ContextMap()["pid"])
	assert.Len(t, logs.FilterMessage("process exited").All(), 1)
}

func TestClose(t *testing.T) {
	p, err := Command("cat").Start()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, p.ExitCode())
}

func TestClose_InterruptsPendingRead(t *testing.T) {
	c := Command("sleep", "30")
	c.Stdin = DevNull
	c.Stderr = DevNull
	p, err := c.Start()
	require.NoError(t, err)
	defer func() {
		_ = p.Kill()
		_, _ = p.Wait()
	}()

	readErr := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(p.Stdout)
		readErr <- err
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, p.Close())

	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, os.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("read on stdout still blocked after Close")
	}
}
