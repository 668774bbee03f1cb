package check

import (
	"fmt"
	"regexp"
)

// Fail marks the result failed with detail as the last line and err as the
// cause.
func (r *Result) Fail(detail string, err error) Result {
	r.Status = StatusFail
	r.Details = append(r.Details, detail)
	r.Err = err
	return *r
}

// Failf fails with an error built by fmt.Errorf, so a %w verb keeps the
// wrapped error reachable through Result.Err. The detail line is the
// error text.
func (r *Result) Failf(format string, args ...interface{}) Result {
	err := fmt.Errorf(format, args...)
	return r.Fail(err.Error(), err)
}

// Pass marks the result successful.
func (r *Result) Pass() Result {
	r.Status = StatusOK
	r.Err = nil
	return *r
}

// AddDetailf appends a "label: value" style detail line.
func (r *Result) AddDetailf(format string, args ...interface{}) *Result {
	r.Details = append(r.Details, fmt.Sprintf(format, args...))
	return r
}

// CompileRegex compiles pattern. An empty pattern yields a nil regexp,
// meaning nothing to match.
func CompileRegex(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re, nil
}
