//go:build !windows
// +build !windows

package sandbox

import "golang.org/x/sys/unix"

// runningAsRoot reports whether this process runs with root privileges. A
// sandboxed child inherits the real process's ambient authority regardless
// of any Exception granted to it, so Spawn refuses to run at all rather
// than let a permission grant look more restrictive than it actually is.
func runningAsRoot() bool {
	return unix.Geteuid() == 0
}
