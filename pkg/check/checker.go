package check

// Checker is implemented by all check types.
// A check spawns or inspects something once and returns a Result
// indicating success or failure.
//
// Implementations:
//   - spawncheck.Check: spawns a command and verifies its exit and output
type Checker interface {
	Run() Result
}
