package spawn

import (
	"path/filepath"
	"reflect"
	"slices"
	"testing"
)

func TestExecCandidates(t *testing.T) {
	tests := []struct {
		name     string
		program  string
		pathList string
		want     []string
	}{
		{"absolute path", "/bin/echo", "/usr/bin", []string{"/bin/echo"}},
		{"relative path with slash", "./run.sh", "/usr/bin", []string{"./run.sh"}},
		{"searched", "echo", "/usr/local/bin:/bin", []string{"/usr/local/bin/echo", "/bin/echo"}},
		{"empty element is current dir", "echo", "/bin::/usr/bin", []string{"/bin/echo", "./echo", "/usr/bin/echo"}},
		{"empty path list", "echo", "", []string{"echo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := execCandidates(tt.program, tt.pathList)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("execCandidates(%q, %q) = %v, want %v", tt.program, tt.pathList, got, tt.want)
			}
		})
	}
}

func TestSetEnv(t *testing.T) {
	env := []string{"A=1", "PWD=/old", "B=2", "PWD=/older"}

	got := setEnv(env, "PWD", "/new")

	want := []string{"A=1", "B=2", "PWD=/new"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("setEnv() = %v, want %v", got, want)
	}
	if env[1] != "PWD=/old" {
		t.Error("setEnv() modified its input")
	}
}

func TestEnvironment_InheritedGetsPWD(t *testing.T) {
	t.Setenv("CPOPEN_MARSHAL_TEST", "yes")
	dir := t.TempDir()

	env := environment(&Request{Args: []string{"true"}, Dir: dir})

	if !slices.Contains(env, "CPOPEN_MARSHAL_TEST=yes") {
		t.Error("inherited environment lost CPOPEN_MARSHAL_TEST")
	}
	if !slices.Contains(env, "PWD="+dir) {
		t.Errorf("environment missing PWD=%s", dir)
	}
}

func TestEnvironment_RelativeDirIsAbsolute(t *testing.T) {
	abs, err := filepath.Abs("testdata")
	if err != nil {
		t.Fatal(err)
	}

	env := environment(&Request{Args: []string{"true"}, Dir: "testdata"})

	if !slices.Contains(env, "PWD="+abs) {
		t.Errorf("environment missing PWD=%s", abs)
	}
}

func TestEnvironment_ExplicitUntouched(t *testing.T) {
	req := &Request{Args: []string{"true"}, Env: []string{"key=value"}, Dir: "/tmp"}

	env := environment(req)

	if !reflect.DeepEqual(env, []string{"key=value"}) {
		t.Errorf("environment() = %v, want [key=value]", env)
	}
}

func TestCstrings(t *testing.T) {
	out, err := cstrings([]string{"echo", "hi"})
	if err != nil {
		t.Fatalf("cstrings() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if out[2] != nil {
		t.Error("array is not nil-terminated")
	}
	if _, err := cstrings([]string{"a\x00"}); err == nil {
		t.Error("cstrings() accepted a NUL byte")
	}
}

func TestMarshal(t *testing.T) {
	t.Setenv("PATH", "/one:/two")

	b, err := marshal(&Request{Args: []string{"prog", "arg"}, Env: []string{"A=1"}, Dir: "/tmp"})
	if err != nil {
		t.Fatalf("marshal() error = %v", err)
	}
	if len(b.argv) != 3 || len(b.envv) != 2 || len(b.paths) != 2 {
		t.Errorf("lengths argv=%d envv=%d paths=%d, want 3 2 2", len(b.argv), len(b.envv), len(b.paths))
	}
	if b.dir == nil {
		t.Error("dir not set")
	}

	b, err = marshal(&Request{Args: []string{"prog"}})
	if err != nil {
		t.Fatalf("marshal() error = %v", err)
	}
	if b.dir != nil {
		t.Error("dir set without Request.Dir")
	}
}
