package output

import (
	"bytes"
	"testing"

	"github.com/vertti/cpopen/pkg/check"
)

func noColor(t *testing.T) {
	t.Helper()
	oldGreen, oldRed, oldDim, oldReset := green, red, dim, reset
	green, red, dim, reset = "", "", "", ""
	t.Cleanup(func() { green, red, dim, reset = oldGreen, oldRed, oldDim, oldReset })
}

func TestFormatLabel(t *testing.T) {
	noColor(t)

	tests := []struct {
		input string
		want  string
	}{
		{"pid: 42", "pid: 42"},
		{"no colon here", "no colon here"},
		{"stderr: a: b", "stderr: a: b"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := formatLabel(tt.input); got != tt.want {
			t.Errorf("formatLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatLabelWithColors(t *testing.T) {
	noColor(t)
	dim, reset = "[DIM]", "[RESET]"

	tests := []struct {
		input string
		want  string
	}{
		{"pid: 42", "[DIM]pid:[RESET] 42"},
		{"stderr: a: b", "[DIM]stderr:[RESET] a: b"},
		{"no colon here", "no colon here"},
	}

	for _, tt := range tests {
		if got := formatLabel(tt.input); got != tt.want {
			t.Errorf("formatLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFprintOK(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer

	Fprint(&buf, check.Result{
		Name:    "spawn: echo hi",
		Status:  check.StatusOK,
		Details: []string{"pid: 42", "exit: 0"},
	})

	want := "[OK] spawn: echo hi\n     pid: 42\n     exit: 0\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestFprintFail(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer

	Fprint(&buf, check.Result{
		Name:    "spawn: missing",
		Status:  check.StatusFail,
		Details: []string{"stage: exec (execve)"},
	})

	want := "[FAIL] spawn: missing\n     stage: exec (execve)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestFprintColors(t *testing.T) {
	noColor(t)
	green, red, reset = "<G>", "<R>", "<X>"
	var buf bytes.Buffer

	Fprint(&buf, check.Result{Name: "a", Status: check.StatusOK})
	Fprint(&buf, check.Result{Name: "b", Status: check.StatusFail})

	want := "<G>[OK]<X> a\n<R>[FAIL]<X> b\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
