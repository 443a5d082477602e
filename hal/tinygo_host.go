//go:build tinygo && !baremetal

package hal

// New returns the simulated sensor HAL for TinyGo targets without a pin
// mapping (linux, wasm).
func New() (HAL, error) {
	return NewHost(DefaultHostConfig())
}
