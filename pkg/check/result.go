package check

// Status represents the outcome of a check.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// Result holds the outcome of a single check. Details are printed one per
// line; a "label: value" line has its label dimmed by package output.
type Result struct {
	Name    string   // e.g., "spawn: echo hi"
	Status  Status   // OK or FAIL
	Details []string // pid, exit status, captured output, failure reason
	Err     error    // cause of a failure; a spawn failure keeps its *spawn.Error
}

// OK returns true if the check passed.
func (r Result) OK() bool {
	return r.Status == StatusOK
}
