package update

import "github.com/pkg/errors"

// Typed failure states for the self-update flow (§7). The updater never
// retries any of these automatically - a failed update must be visible to
// the human running the command.
var (
	ErrUnsupportedPlatform = errors.New("no release is published for this OS/architecture")
	ErrAssetMissing        = errors.New("release is missing an expected asset")
	ErrDownloadFailed      = errors.New("failed to download a release asset")
	ErrSignatureInvalid    = errors.New("release signature verification failed")
	ErrInstallerFailed     = errors.New("installer script exited with a non-zero status")
	ErrUpdateInProgress    = errors.New("another update is already in progress")
)
