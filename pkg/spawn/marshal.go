package spawn

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// defaultPath is used for program search when PATH is unset, matching
// the C library's execvp.
const defaultPath = "/bin:/usr/bin"

// argvBlock holds the NUL-terminated strings handed to exec. It lives for
// one Spawn call and must stay reachable until the fork has returned.
type argvBlock struct {
	argv  []*byte // arguments, nil-terminated
	envv  []*byte // environment, nil-terminated
	paths []*byte // exec candidates in search order
	dir   *byte   // working directory, nil when unchanged
}

func marshal(req *Request) (*argvBlock, error) {
	var (
		b   argvBlock
		err error
	)
	if b.argv, err = cstrings(req.Args); err != nil {
		return nil, invalidf("arguments: %v", err)
	}
	if b.envv, err = cstrings(environment(req)); err != nil {
		return nil, invalidf("environment: %v", err)
	}
	candidates := execCandidates(req.Args[0], lookupPath())
	b.paths = make([]*byte, 0, len(candidates))
	for _, c := range candidates {
		p, err := syscall.BytePtrFromString(c)
		if err != nil {
			return nil, invalidf("program path %q: %v", c, err)
		}
		b.paths = append(b.paths, p)
	}
	if req.Dir != "" {
		if b.dir, err = syscall.BytePtrFromString(req.Dir); err != nil {
			return nil, invalidf("working directory: %v", err)
		}
	}
	return &b, nil
}

// cstrings converts ss into a nil-terminated array of C strings.
func cstrings(ss []string) ([]*byte, error) {
	out := make([]*byte, len(ss)+1)
	for i, s := range ss {
		p, err := syscall.BytePtrFromString(s)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// environment returns the child's environment. An inherited environment
// gets PWD pointed at the new working directory; an explicit one is passed
// through untouched.
func environment(req *Request) []string {
	if req.Env != nil {
		return append([]string(nil), req.Env...)
	}
	env := os.Environ()
	if req.Dir == "" {
		return env
	}
	return setEnv(env, "PWD", absDir(req.Dir))
}

func absDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// setEnv replaces every key entry in env with key=value, appending one if
// none exists.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return append(out, prefix+value)
}

func lookupPath() string {
	if p, ok := os.LookupEnv("PATH"); ok {
		return p
	}
	return defaultPath
}

// execCandidates lists the paths exec tries for name, in order. A name with
// a slash is used as is; anything else is searched along pathList, where an
// empty element means the current directory.
func execCandidates(name, pathList string) []string {
	if strings.Contains(name, "/") {
		return []string{name}
	}
	dirs := filepath.SplitList(pathList)
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			dir = "."
		}
		out = append(out, dir+"/"+name)
	}
	if len(out) == 0 {
		out = append(out, name)
	}
	return out
}
