//go:build !moonshine || !cgo

package moonshine

// Open returns the in-memory engine. Build with the moonshine tag and cgo
// enabled to link against the native library instead.
func Open() (Engine, error) {
	return NewMemoryEngine(), nil
}
