//go:build !linux || !(386 || amd64 || arm || arm64 || loong64 || ppc64le || riscv64)

package spawn

// spawn needs raw clone and Linux descriptor semantics.
func spawn(*Request) (*Result, error) {
	return nil, ErrNotSupported
}
