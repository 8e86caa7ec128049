//go:build darwin

package audiocapture

// defaultInputDevice returns the ffmpeg input arguments for the default
// macOS microphone via AVFoundation.
func defaultInputDevice() (format, device string, ok bool) {
	return "avfoundation", ":default", true
}
