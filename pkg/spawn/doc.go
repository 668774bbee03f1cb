// Package spawn starts child processes through a narrow fork/exec path.
//
// The code that runs in the child between fork and exec uses only raw
// system calls on memory prepared before the fork. It never allocates and
// never grows the stack, so a fork taken while other goroutines hold
// runtime locks cannot deadlock the child.
//
// # Usage
//
//	res, err := spawn.Spawn(&spawn.Request{
//	    Args:        []string{"cat"},
//	    Stdin:       spawn.Redirect{Child: inR, Parent: inW},
//	    Stdout:      spawn.Redirect{Child: outW, Parent: outR},
//	    Stderr:      spawn.Inherit,
//	    DeathSignal: syscall.SIGKILL,
//	})
//
// The caller owns res.Pid and must reap it. On failure after fork the
// returned *Error carries the pid of the child that already exited.
//
// # Error channel
//
// Every call creates a close-on-exec pipe. The child writes to it only
// when something fails:
//
//   - a death-signal result, one int32 errno (0 means registered), sent
//     only when Request.DeathSignal is set;
//   - a final failure, an int32 stage followed by an int32 errno, sent
//     in a single write.
//
// A successful exec closes the child's write end, so the parent reads
// end-of-file where the final failure would be. That end-of-file is the
// only success signal; a final failure carrying errno 0 is reported as a
// protocol error.
//
// # Death signal
//
// Linux ties PR_SET_PDEATHSIG to the thread that forked, not to the
// process. If the spawning goroutine is locked to an OS thread that later
// exits, the child receives the signal at that point.
package spawn
