//go:build linux && (386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package spawn

import _ "unsafe" // for go:linkname

// Hooks the syscall package uses around its own fork. BeforeFork blocks
// signals and poisons the stack guard so that any stack growth in the
// child aborts instead of corrupting state.

//go:linkname runtimeBeforeFork syscall.runtime_BeforeFork
func runtimeBeforeFork()

//go:linkname runtimeAfterFork syscall.runtime_AfterFork
func runtimeAfterFork()

// runtimeAfterForkInChild resets signal handlers to their defaults
// (keeping ignored signals ignored) and restores the signal mask.
//
//go:linkname runtimeAfterForkInChild syscall.runtime_AfterForkInChild
func runtimeAfterForkInChild()
