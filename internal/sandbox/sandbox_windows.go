package sandbox

// runningAsRoot always reports false on Windows, which has no equivalent
// euid-0 concept; administrator-privilege detection isn't load-bearing for
// the sandboxing this package provides there.
func runningAsRoot() bool {
	return false
}
