package spawn

import "os"

// Spawn starts req as a child process and returns once the child has
// either replaced itself with the program or reported why it could not.
//
// Validation errors wrap ErrInvalidArgument and no process is created.
// Any other failure is an *Error; when Error.Forked reports true a child
// was created and has exited or is exiting, and the caller must reap it.
func Spawn(req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return spawn(req)
}

// Close closes parent-side descriptors left over from a failed or
// abandoned spawn. NoFD entries are skipped. The first error is returned
// but every descriptor is attempted.
func Close(fds ...int) error {
	var first error
	for _, fd := range fds {
		if fd < 0 {
			continue
		}
		if err := os.NewFile(uintptr(fd), "").Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
