//go:build !darwin && !linux

package audiocapture

// defaultInputDevice reports no capture backend on unsupported platforms.
func defaultInputDevice() (format, device string, ok bool) {
	return "", "", false
}
