package extension

import "github.com/pkg/errors"

// Typed failure states for extension install/uninstall and permission
// enforcement (§7).
var (
	ErrNameInvalid  = errors.New("extension name must match [a-z][a-z0-9-]*")
	ErrNameReserved = errors.New("extension name collides with a built-in subcommand")
	ErrNotInstalled = errors.New("no extension with that name is installed")
)

// PermissionDeniedError is raised inside the running extension engine when
// a host API call needs an axis/value the manifest did not grant. It is
// never retried (§4.4).
type PermissionDeniedError struct {
	Axis  string
	Value string
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + e.Axis + " " + e.Value
}
