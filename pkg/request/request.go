// Package request decodes spawn requests from loosely typed JSON documents.
//
// A document looks like:
//
//	{
//	  "args": ["sleep", "10"],
//	  "env": {"LANG": "C"},
//	  "cwd": "/tmp",
//	  "close_fds": true,
//	  "death_signal": "SIGTERM",
//	  "umask": "027",
//	  "restore_sigpipe": true,
//	  "retries": 5
//	}
//
// Only "args" is required. "env" may also be an array of KEY=VALUE
// strings; "death_signal" and "umask" accept numbers too.
package request

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"

	"github.com/vertti/cpopen/pkg/spawn"
)

var knownFields = map[string]bool{
	"args":            true,
	"env":             true,
	"cwd":             true,
	"close_fds":       true,
	"death_signal":    true,
	"umask":           true,
	"restore_sigpipe": true,
	"retries":         true,
}

// Parse decodes data into a validated spawn request.
func Parse(data []byte) (*spawn.Request, error) {
	if !gjson.ValidBytes(data) {
		return nil, invalidf("request is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, invalidf("request must be a JSON object")
	}

	var unknown string
	doc.ForEach(func(key, _ gjson.Result) bool {
		if !knownFields[key.String()] {
			unknown = key.String()
			return false
		}
		return true
	})
	if unknown != "" {
		return nil, invalidf("unknown field %q", unknown)
	}

	req := &spawn.Request{
		Stdin:  spawn.Inherit,
		Stdout: spawn.Inherit,
		Stderr: spawn.Inherit,
	}
	var err error
	if req.Args, err = parseArgs(doc.Get("args")); err != nil {
		return nil, err
	}
	if req.Env, err = parseEnv(doc.Get("env")); err != nil {
		return nil, err
	}
	if req.Dir, err = stringField(doc, "cwd"); err != nil {
		return nil, err
	}
	if req.CloseFDs, err = boolField(doc, "close_fds"); err != nil {
		return nil, err
	}
	if req.RestoreSigpipe, err = boolField(doc, "restore_sigpipe"); err != nil {
		return nil, err
	}
	if v := doc.Get("death_signal"); v.Exists() && v.Type != gjson.Null {
		if req.DeathSignal, err = signalValue(v); err != nil {
			return nil, err
		}
	}
	if v := doc.Get("umask"); v.Exists() && v.Type != gjson.Null {
		mask, err := umaskValue(v)
		if err != nil {
			return nil, err
		}
		if mask >= 0 {
			req.Umask = &mask
		}
	}
	if v := doc.Get("retries"); v.Exists() && v.Type != gjson.Null {
		n, ok := intValue(v)
		if !ok || n < 0 {
			return nil, invalidf("retries must be a non-negative integer, got %s", v.Raw)
		}
		req.TransientRetries = n
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// ParseFile reads and decodes a request document.
func ParseFile(path string) (*spawn.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	req, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// ParseSignal accepts "SIGTERM", "TERM", "term" or "15".
func ParseSignal(s string) (syscall.Signal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalidf("empty signal")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 64 {
			return 0, invalidf("signal %d out of range", n)
		}
		return syscall.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	if sig := signalNum(name); sig != 0 {
		return sig, nil
	}
	return 0, invalidf("unknown signal %q", s)
}

// ParseUmask accepts octal with or without a leading "0" or "0o".
func ParseUmask(s string) (int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0o"), "0O")
	if digits == "" {
		digits = "0"
	}
	n, err := strconv.ParseUint(digits, 8, 32)
	if err != nil || n > 0o777 {
		return 0, invalidf("umask %q is not an octal mode", s)
	}
	return int(n), nil
}

func parseArgs(v gjson.Result) ([]string, error) {
	if !v.Exists() {
		return nil, invalidf("args is required")
	}
	if !v.IsArray() {
		return nil, invalidf("args must be an array of strings")
	}
	items := v.Array()
	if len(items) == 0 {
		return nil, invalidf("args must not be empty")
	}
	args := make([]string, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.String {
			return nil, invalidf("args[%d] must be a string, got %s", i, item.Raw)
		}
		args = append(args, item.String())
	}
	return args, nil
}

// parseEnv returns nil when env is absent, meaning inherit.
func parseEnv(v gjson.Result) ([]string, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	env := []string{}
	switch {
	case v.IsArray():
		for i, item := range v.Array() {
			if item.Type != gjson.String {
				return nil, invalidf("env[%d] must be a string, got %s", i, item.Raw)
			}
			env = append(env, item.String())
		}
	case v.IsObject():
		var bad string
		v.ForEach(func(key, value gjson.Result) bool {
			if value.Type != gjson.String {
				bad = key.String()
				return false
			}
			env = append(env, key.String()+"="+value.String())
			return true
		})
		if bad != "" {
			return nil, invalidf("env value for %q must be a string", bad)
		}
	default:
		return nil, invalidf("env must be an array or an object")
	}
	return env, nil
}

func stringField(doc gjson.Result, name string) (string, error) {
	v := doc.Get(name)
	if !v.Exists() || v.Type == gjson.Null {
		return "", nil
	}
	if v.Type != gjson.String {
		return "", invalidf("%s must be a string, got %s", name, v.Raw)
	}
	return v.String(), nil
}

func boolField(doc gjson.Result, name string) (bool, error) {
	v := doc.Get(name)
	switch v.Type {
	case gjson.True:
		return true, nil
	case gjson.False, gjson.Null:
		return false, nil
	default:
		return false, invalidf("%s must be a boolean, got %s", name, v.Raw)
	}
}

func signalValue(v gjson.Result) (syscall.Signal, error) {
	switch v.Type {
	case gjson.Number:
		n, ok := intValue(v)
		if !ok {
			return 0, invalidf("death_signal must be an integer, got %s", v.Raw)
		}
		return ParseSignal(strconv.Itoa(n))
	case gjson.String:
		return ParseSignal(v.String())
	default:
		return 0, invalidf("death_signal must be a number or a signal name, got %s", v.Raw)
	}
}

func umaskValue(v gjson.Result) (int, error) {
	switch v.Type {
	case gjson.Number:
		// A negative mask leaves the umask alone, like an absent one.
		n, ok := intValue(v)
		if !ok || n > 0o777 {
			return 0, invalidf("umask must be at most 0777, got %s", v.Raw)
		}
		return n, nil
	case gjson.String:
		return ParseUmask(v.String())
	default:
		return 0, invalidf("umask must be a number or an octal string, got %s", v.Raw)
	}
}

// intValue reports whether v is an integral JSON number.
func intValue(v gjson.Result) (int, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.Atoi(v.Raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", spawn.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
