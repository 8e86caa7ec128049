//go:build linux

package audiocapture

// defaultInputDevice returns the ffmpeg input arguments for the default
// PulseAudio source.
func defaultInputDevice() (format, device string, ok bool) {
	return "pulse", "default", true
}
