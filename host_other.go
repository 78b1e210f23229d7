//go:build !linux

package autoprobe

import "runtime"

// hostTriple guesses the host triple from the Go runtime when neither HOST
// nor rustc reported one. Only the common desktop targets are known.
func hostTriple() string {
	arch := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
	}[runtime.GOARCH]
	if arch == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	case "freebsd":
		return arch + "-unknown-freebsd"
	default:
		return ""
	}
}
