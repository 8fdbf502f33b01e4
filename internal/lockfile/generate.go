package lockfile

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/phylum-dev/cli/internal/sandbox"
)

// runGenerator invokes an ecosystem tool under the OS sandbox to
// synthesize a lockfile in manifestDir, per §4.1's generation path: read
// and execute access to common toolchain locations, write access scoped
// to the manifest's own directory, and network egress (dependency
// resolution needs the registry).
func runGenerator(manifestDir, command string, args ...string) error {
	path, err := exec.LookPath(command)
	if err != nil {
		return errors.Wrapf(err, "locating %s", command)
	}

	home, _ := os.UserHomeDir()

	box := sandbox.New().Allow(
		sandbox.ExecuteAndReadPath(path),
		sandbox.ExecuteAndReadPath("/usr/bin"),
		sandbox.ExecuteAndReadPath("/bin"),
		sandbox.ReadWritePath(manifestDir),
		sandbox.Network(),
	)
	if home != "" {
		box.Allow(
			sandbox.ExecuteAndReadPath(filepath.Join(home, ".cargo")),
			sandbox.ExecuteAndReadPath(filepath.Join(home, ".m2")),
			sandbox.ExecuteAndReadPath(filepath.Join(home, ".gradle")),
		)
	}

	cmd, err := box.Spawn(context.Background(), path, args, os.Environ())
	if err != nil {
		return err
	}
	cmd.Dir = manifestDir

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running %s %v in %s", command, args, manifestDir)
	}
	return nil
}
