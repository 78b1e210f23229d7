//go:build linux

package autoprobe

import "golang.org/x/sys/unix"

// hostTriple guesses the host triple from uname when neither HOST nor rustc
// reported one.
func hostTriple() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}
	switch machine := unix.ByteSliceToString(uname.Machine[:]); machine {
	case "":
		return ""
	case "arm64":
		return "aarch64-unknown-linux-gnu"
	case "i386", "i586":
		return "i686-unknown-linux-gnu"
	default:
		return machine + "-unknown-linux-gnu"
	}
}
