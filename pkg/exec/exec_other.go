//go:build !unix

package exec

import "os"

// Only interrupts are portable outside Unix.
var forwardedSignals = []os.Signal{os.Interrupt}
