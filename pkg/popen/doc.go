// Package popen is a caller-side wrapper over package spawn.
//
// spawn deals in raw descriptor pairs. popen creates the pipes, closes
// the child's ends once the child holds them and hands the parent ends
// back as *os.File values:
//
//	p, err := popen.Command("sort").Start()
//	if err != nil {
//	    return err
//	}
//	out, _, err := p.Communicate([]byte("b\na\n"))
//
// Every stream defaults to Pipe when the Cmd comes from Command. Use
// Inherit, DevNull or FD to change that. Descriptors passed with FD stay
// owned by the caller.
//
// A Process must be waited for, either with Wait or Communicate, to reap
// the child. popen does not supervise or restart processes.
package popen
