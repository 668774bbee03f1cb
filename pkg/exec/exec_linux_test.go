//go:build linux && (386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package exec

import (
	"bufio"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vertti/cpopen/pkg/popen"
	"github.com/vertti/cpopen/pkg/spawn"
)

func quiet(args ...string) *popen.Cmd {
	c := popen.Command(args[0], args[1:]...)
	c.Stdin, c.Stdout, c.Stderr = popen.DevNull, popen.DevNull, popen.DevNull
	return c
}

func TestRealRunner_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"success", []string{"true"}, 0},
		{"failure", []string{"sh", "-c", "exit 7"}, 7},
		{"signalled", []string{"sh", "-c", "kill -TERM $$"}, 128 + int(syscall.SIGTERM)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RealRunner{}
			code, err := r.Run(quiet(tt.args...))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if code != tt.want {
				t.Errorf("Run() = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRealRunner_StartError(t *testing.T) {
	r := &RealRunner{}
	code, err := r.Run(quiet("cpopen-test-no-such-program"))

	var se *spawn.Error
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want *spawn.Error", err)
	}
	if code != -1 {
		t.Errorf("Run() = %d, want -1", code)
	}
}

func TestRealRunner_ForwardsSignals(t *testing.T) {
	ready, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer ready.Close()

	c := quiet("sh", "-c", "echo ready; exec sleep 30")
	c.Stdout = popen.FD(int(w.Fd()))

	done := make(chan int, 1)
	go func() {
		code, err := (&RealRunner{}).Run(c)
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
		done <- code
	}()

	if _, err := bufio.NewReader(ready).ReadString('\n'); err != nil {
		t.Fatalf("waiting for child: %v", err)
	}
	w.Close()
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	if code := <-done; code != 128+int(syscall.SIGTERM) {
		t.Errorf("Run() = %d, want %d", code, 128+int(syscall.SIGTERM))
	}
}

func TestForward_SkipsTerminalSignals(t *testing.T) {
	old := fromTerminal
	fromTerminal = func(sig os.Signal) bool { return sig == syscall.SIGINT }
	defer func() { fromTerminal = old }()

	p, err := quiet("sleep", "30").Start()
	if err != nil {
		t.Fatal(err)
	}
	sigs := make(chan os.Signal, 1)
	go forward(p, sigs, zap.NewNop())

	sigs <- syscall.SIGINT
	time.Sleep(100 * time.Millisecond)
	if got := p.State(); got != popen.StateRunning {
		t.Fatalf("State() = %v after a terminal SIGINT, want running", got)
	}

	sigs <- syscall.SIGTERM
	ps, err := p.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code := ExitCode(ps); code != 128+int(syscall.SIGTERM) {
		t.Errorf("ExitCode() = %d, want %d", code, 128+int(syscall.SIGTERM))
	}
}

func TestTerminalSignal_NotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	if inForeground(int(r.Fd())) {
		t.Error("inForeground(pipe) = true, want false")
	}
	if terminalSignal(syscall.SIGTERM) {
		t.Error("terminalSignal(SIGTERM) = true, want false")
	}
}
